// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/block"
	. "github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

func newTestRepo(t *testing.T) (*muxdb.MuxDB, *Repository) {
	db := muxdb.NewMem()
	b0, err := genesis.NewDevnet().Build(state.NewStater(db))
	require.NoError(t, err)

	repo, err := NewRepository(db, b0)
	require.NoError(t, err)
	return db, repo
}

func newBlock(parent *block.Block, ts uint64, txs ...*tx.Transaction) *block.Block {
	builder := new(block.Builder).
		ParentID(parent.Header().ID()).
		Timestamp(ts).
		GasLimit(thor.InitialGasLimit)

	for _, trx := range txs {
		builder.Transaction(trx)
	}
	return builder.Build()
}

func TestRepository(t *testing.T) {
	db, repo := newTestRepo(t)
	b0 := repo.GenesisBlock()

	assert.Equal(t, b0.Header().ID(), repo.BestBlockSummary().Header.ID())
	assert.Equal(t, b0.Header().ID()[31], repo.ChainTag())
	id, err := repo.GetBlockIDByNumber(0)
	require.NoError(t, err)
	assert.Equal(t, b0.Header().ID(), id)

	tx1 := tx.NewBuilder().Nonce(1).Gas(21000).Build()
	receipt1 := &tx.Receipt{GasUsed: 21000}

	b1 := newBlock(b0, 10, tx1)
	require.NoError(t, repo.AddBlock(b1, tx.Receipts{receipt1}, false))

	// best block not set, so still 0
	assert.Equal(t, uint32(0), repo.BestBlockSummary().Header.Number())
	_, err = repo.GetBlockIDByNumber(1)
	assert.True(t, repo.IsNotFound(err))

	ticker := repo.NewTicker()
	require.NoError(t, repo.SetBestBlockID(b1.Header().ID()))
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker not signaled")
	}
	assert.Equal(t, b1.Header().ID(), repo.BestBlockSummary().Header.ID())

	// reopen
	repo2, err := NewRepository(db, b0)
	require.NoError(t, err)
	assert.Equal(t, b1.Header().ID(), repo2.BestBlockSummary().Header.ID())

	blk, err := repo2.GetBlock(b1.Header().ID())
	require.NoError(t, err)
	assert.Equal(t, b1.Header().ID(), blk.Header().ID())
	require.Len(t, blk.Transactions(), 1)
	assert.Equal(t, tx1.ID(), blk.Transactions()[0].ID())

	receipts, err := repo2.GetBlockReceipts(b1.Header().ID())
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, uint64(21000), receipts[0].GasUsed)

	summary, err := repo2.GetBlockSummary(b1.Header().ID())
	require.NoError(t, err)
	assert.Equal(t, []thor.Bytes32{tx1.ID()}, summary.Txs)
	assert.Equal(t, b1.Size(), summary.Size)
}

func TestAddBlockErrors(t *testing.T) {
	_, repo := newTestRepo(t)
	b0 := repo.GenesisBlock()

	orphan := new(block.Builder).ParentID(thor.Blake2b([]byte("unknown"))).Build()
	assert.EqualError(t, repo.AddBlock(orphan, nil, true), "parent missing")

	b1 := newBlock(b0, 10, tx.NewBuilder().Build())
	assert.Error(t, repo.AddBlock(b1, nil, true))

	_, err := repo.GetBlockHeader(thor.Blake2b([]byte("unknown")))
	assert.True(t, repo.IsNotFound(err))
}

func TestGenesisMismatch(t *testing.T) {
	db, _ := newTestRepo(t)
	other := new(block.Builder).ParentID(block.GenesisParentID()).Timestamp(1).Build()
	_, err := NewRepository(db, other)
	assert.EqualError(t, err, "genesis mismatch")
}

func TestCanonicalIndex(t *testing.T) {
	_, repo := newTestRepo(t)
	b0 := repo.GenesisBlock()

	b1 := newBlock(b0, 10)
	b2 := newBlock(b1, 20)
	b3 := newBlock(b2, 30)
	for _, b := range []*block.Block{b1, b2, b3} {
		require.NoError(t, repo.AddBlock(b, nil, true))
	}

	// a fork from b1 becomes best
	b2x := newBlock(b1, 21)
	require.NoError(t, repo.AddBlock(b2x, nil, true))
	assert.Equal(t, b2x.Header().ID(), repo.BestBlockSummary().Header.ID())

	for num, want := range []thor.Bytes32{b0.Header().ID(), b1.Header().ID(), b2x.Header().ID()} {
		id, err := repo.GetBlockIDByNumber(uint32(num))
		require.NoError(t, err)
		assert.Equal(t, want, id, "number %v", num)
	}
	_, err := repo.GetBlockIDByNumber(3)
	assert.True(t, repo.IsNotFound(err))

	// the fork is still readable
	h, err := repo.GetBlockHeader(b3.Header().ID())
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h.Number())
}
