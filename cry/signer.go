// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cry provides the signing provider.
package cry

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/thor"
)

// SignatureLength is the length of a signature in [R || S || V] format.
const SignatureLength = 65

// compact signatures produced by decred are prefixed with 27 + recovery id.
const compactSigMagicOffset = 27

var (
	secp256k1N     = secp256k1.S256().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// Signer signs hashes with a secp256k1 private key.
// The same key always yields the same address.
type Signer struct {
	key  *secp256k1.PrivateKey
	addr thor.Address
}

// NewSigner creates a signer from the 32 bytes private key.
func NewSigner(privateKey []byte) (*Signer, error) {
	if len(privateKey) != secp256k1.PrivKeyBytesLen {
		return nil, errors.New("invalid private key length")
	}
	var key secp256k1.PrivateKey
	if overflow := key.Key.SetByteSlice(privateKey); overflow || key.Key.IsZero() {
		return nil, errors.New("invalid private key")
	}
	return newSigner(&key), nil
}

// ParseSigner creates a signer from the hex encoded private key, with or without 0x prefix.
func ParseSigner(s string) (*Signer, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, errors.WithMessage(err, "private key")
	}
	return NewSigner(b)
}

// MustParseSigner same as ParseSigner, but panics on error.
func MustParseSigner(s string) *Signer {
	signer, err := ParseSigner(s)
	if err != nil {
		panic(err)
	}
	return signer
}

// GenerateSigner creates a signer with a random private key.
func GenerateSigner() (*Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return newSigner(key), nil
}

func newSigner(key *secp256k1.PrivateKey) *Signer {
	return &Signer{
		key:  key,
		addr: PubkeyToAddress(key.PubKey()),
	}
}

// Address returns the address derived from the public key.
func (s *Signer) Address() thor.Address {
	return s.addr
}

// PrivateKey returns the serialized private key.
func (s *Signer) PrivateKey() []byte {
	return s.key.Serialize()
}

// Sign signs the hash. The produced signature is in the [R || S || V] format where V is 0 or 1.
func (s *Signer) Sign(hash thor.Bytes32) ([]byte, error) {
	compact := ecdsa.SignCompact(s.key, hash[:], false)
	if len(compact) != SignatureLength {
		return nil, errors.New("unexpected signature length")
	}
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactSigMagicOffset
	return sig, nil
}

// PubkeyToAddress derives the address from the public key.
func PubkeyToAddress(pub *secp256k1.PublicKey) thor.Address {
	h := thor.Keccak256(pub.SerializeUncompressed()[1:])
	return thor.BytesToAddress(h[12:])
}

// Recover recovers the signer address from the hash and the signature in [R || S || V] format.
func Recover(hash thor.Bytes32, sig []byte) (thor.Address, error) {
	if len(sig) != SignatureLength {
		return thor.Address{}, errors.New("invalid signature length")
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !validateSignatureValues(sig[64], r, s) {
		return thor.Address{}, errors.New("invalid signature values")
	}
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return thor.Address{}, err
	}
	return thor.Address(crypto.PubkeyToAddress(*pub)), nil
}

// validateSignatureValues rejects malleable signatures (upper range of s values).
func validateSignatureValues(v byte, r, s *big.Int) bool {
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if s.Cmp(secp256k1HalfN) > 0 {
		return false
	}
	return r.Cmp(secp256k1N) < 0 && (v == 0 || v == 1)
}
