// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

var testSigner = cry.MustParseSigner("7582be841ca040aa940fff6c05773129e135623e41acce3e0b8ba520dc1ae26a")

func newTx(to *thor.Address) *tx.Transaction {
	return tx.NewBuilder().
		Nonce(1).
		GasPrice(thor.DefaultGasPrice).
		Gas(thor.DefaultStartGas).
		To(to).
		Value(big.NewInt(10)).
		Data([]byte{0, 1, 2}).
		Build()
}

func TestSignAndSender(t *testing.T) {
	to := thor.BytesToAddress([]byte("to"))
	trx := newTx(&to)

	_, err := trx.Sender()
	assert.Equal(t, tx.ErrBadSignature, errors.Cause(err))

	signed := tx.MustSign(trx, testSigner)
	sender, err := signed.Sender()
	require.NoError(t, err)
	assert.Equal(t, testSigner.Address(), sender)

	// signing doesn't change signing hash, but changes id
	assert.Equal(t, trx.SigningHash(), signed.SigningHash())
	assert.NotEqual(t, trx.ID(), signed.ID())

	// tampered signature recovers to another address or fails
	sig := signed.Signature()
	sig[10]++
	tampered := signed.WithSignature(sig)
	if sender, err := tampered.Sender(); err == nil {
		assert.NotEqual(t, testSigner.Address(), sender)
	}
}

func TestWithSender(t *testing.T) {
	stamp := thor.BytesToAddress([]byte("stamped"))
	trx := tx.MustSign(newTx(nil), testSigner).WithSender(stamp)
	assert.True(t, trx.IsStamped())
	assert.Empty(t, trx.Signature())

	sender, err := trx.Sender()
	require.NoError(t, err)
	assert.Equal(t, stamp, sender)
}

func TestEncoding(t *testing.T) {
	to := thor.BytesToAddress([]byte("to"))
	for _, trx := range []*tx.Transaction{
		tx.MustSign(newTx(&to), testSigner),
		tx.MustSign(newTx(nil), testSigner),
	} {
		data, err := rlp.EncodeToBytes(trx)
		require.NoError(t, err)
		assert.Equal(t, uint64(len(data)), trx.Size())

		var decoded tx.Transaction
		require.NoError(t, rlp.DecodeBytes(data, &decoded))
		assert.Equal(t, trx.ID(), decoded.ID())
		assert.Equal(t, trx.To(), decoded.To())
		assert.Equal(t, trx.IsContractCreation(), decoded.IsContractCreation())
		assert.Equal(t, trx.Value(), decoded.Value())
		assert.Equal(t, trx.GasPrice(), decoded.GasPrice())
		assert.Equal(t, trx.Data(), decoded.Data())

		sender, err := decoded.Sender()
		require.NoError(t, err)
		assert.Equal(t, testSigner.Address(), sender)
	}
}

func TestIntrinsicGas(t *testing.T) {
	to := thor.BytesToAddress([]byte("to"))
	tests := []struct {
		data     []byte
		creation bool
		want     uint64
	}{
		{nil, false, thor.TxGas},
		{nil, true, thor.TxGasContractCreation},
		{[]byte{0, 1}, false, thor.TxGas + thor.TxDataZeroGas + thor.TxDataNonZeroGas},
		{[]byte{1, 1, 0}, true, thor.TxGasContractCreation + thor.TxDataZeroGas + 2*thor.TxDataNonZeroGas},
	}
	for _, tt := range tests {
		b := tx.NewBuilder().Data(tt.data)
		if !tt.creation {
			b.To(&to)
		}
		gas, err := b.Build().IntrinsicGas()
		require.NoError(t, err)
		assert.Equal(t, tt.want, gas)
	}
}

func TestCost(t *testing.T) {
	trx := tx.NewBuilder().GasPrice(big.NewInt(2)).Gas(100).Value(big.NewInt(5)).Build()
	assert.Equal(t, big.NewInt(205), trx.Cost())

	// defaults
	trx = tx.NewBuilder().Build()
	assert.Equal(t, 0, trx.Cost().Sign())
	assert.True(t, trx.IsContractCreation())
}

func TestRootHash(t *testing.T) {
	assert.Equal(t, thor.EmptyRoot, tx.Transactions{}.RootHash())
	assert.Equal(t, thor.EmptyRoot, tx.Receipts{}.RootHash())

	to := thor.BytesToAddress([]byte("to"))
	txs := tx.Transactions{tx.MustSign(newTx(&to), testSigner), tx.MustSign(newTx(nil), testSigner)}
	root := txs.RootHash()
	assert.NotEqual(t, thor.EmptyRoot, root)
	assert.NotEqual(t, root, tx.Transactions{txs[1], txs[0]}.RootHash())

	receipts := tx.Receipts{{GasUsed: 21000, Paid: big.NewInt(1)}, {Reverted: true, Paid: &big.Int{}}}
	assert.NotEqual(t, thor.EmptyRoot, receipts.RootHash())
}
