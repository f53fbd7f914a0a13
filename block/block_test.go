// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

func TestBlock(t *testing.T) {
	signer := cry.MustParseSigner("dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65")
	to := thor.BytesToAddress([]byte("to"))
	tx1 := tx.MustSign(new(tx.Builder).Nonce(0).To(&to).Value(big.NewInt(1)).Gas(21000).Build(), signer)
	tx2 := tx.MustSign(new(tx.Builder).Nonce(1).To(&to).Value(big.NewInt(2)).Gas(21000).Build(), signer)

	var (
		gasUsed      uint64 = 1000
		gasLimit     uint64 = 14000
		timestamp    uint64 = 1_530_000_000
		stateRoot           = thor.BytesToBytes32([]byte("state"))
		receiptsRoot        = thor.BytesToBytes32([]byte("receipts"))
		beneficiary         = thor.BytesToAddress([]byte("abc"))
	)

	blk := new(block.Builder).
		ParentID(block.GenesisParentID()).
		Timestamp(timestamp).
		GasLimit(gasLimit).
		GasUsed(gasUsed).
		Beneficiary(beneficiary).
		StateRoot(stateRoot).
		ReceiptsRoot(receiptsRoot).
		Transaction(tx1).
		Transaction(tx2).
		Build()

	h := blk.Header()
	assert.Equal(t, uint32(0), h.Number())
	assert.Equal(t, uint32(0), block.Number(h.ID()))
	assert.Equal(t, timestamp, h.Timestamp())
	assert.Equal(t, gasLimit, h.GasLimit())
	assert.Equal(t, gasUsed, h.GasUsed())
	assert.Equal(t, beneficiary, h.Beneficiary())
	assert.Equal(t, stateRoot, h.StateRoot())
	assert.Equal(t, receiptsRoot, h.ReceiptsRoot())
	assert.Equal(t, tx.Transactions{tx1, tx2}.RootHash(), h.TxsRoot())
	assert.Equal(t, uint32(2), h.TxCount())

	data, err := rlp.EncodeToBytes(blk)
	require.NoError(t, err)

	var decoded block.Block
	require.NoError(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, h.ID(), decoded.Header().ID())
	require.Len(t, decoded.Transactions(), 2)
	assert.Equal(t, tx1.ID(), decoded.Transactions()[0].ID())

	child := new(block.Builder).ParentID(h.ID()).Build()
	assert.Equal(t, uint32(1), child.Header().Number())
	assert.Equal(t, thor.EmptyRoot, child.Header().TxsRoot())
	assert.NotEqual(t, h.ID(), child.Header().ID())
}
