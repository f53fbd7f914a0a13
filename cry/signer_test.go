// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cry

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/thor"
)

const testKey = "99f0500549792796c14fed62011a51081dc5b5e68fe8bd8a13b86be829c4fd36"

func TestSignerAddress(t *testing.T) {
	signer := MustParseSigner(testKey)
	// same address as derived by go-ethereum
	ecdsaKey, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	assert.Equal(t, thor.Address(crypto.PubkeyToAddress(ecdsaKey.PublicKey)), signer.Address())

	again := MustParseSigner("0x" + testKey)
	assert.Equal(t, signer.Address(), again.Address())
	assert.Equal(t, testKey, thor.BytesToBytes32(signer.PrivateKey()).String()[2:])
}

func TestSignRecover(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	hash := thor.Keccak256([]byte("message"))
	sig, err := signer.Sign(hash)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureLength)
	assert.True(t, sig[64] == 0 || sig[64] == 1)

	// deterministic (RFC6979)
	sig2, _ := signer.Sign(hash)
	assert.Equal(t, sig, sig2)

	addr, err := Recover(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)

	// other hash yields other address
	addr, err = Recover(thor.Keccak256([]byte("other")), sig)
	if err == nil {
		assert.NotEqual(t, signer.Address(), addr)
	}
}

func TestRecoverInvalid(t *testing.T) {
	hash := thor.Keccak256([]byte("message"))
	_, err := Recover(hash, nil)
	assert.Error(t, err)

	_, err = Recover(hash, make([]byte, SignatureLength))
	assert.Error(t, err)

	sig, _ := MustParseSigner(testKey).Sign(hash)
	sig[64] = 2
	_, err = Recover(hash, sig)
	assert.Error(t, err)
}

func TestNewSignerInvalid(t *testing.T) {
	_, err := NewSigner(make([]byte, 31))
	assert.Error(t, err)
	_, err = NewSigner(make([]byte, 32))
	assert.Error(t, err)
	_, err = ParseSigner("zz")
	assert.Error(t, err)
}
