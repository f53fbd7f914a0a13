// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package blockstate_test

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
	"github.com/vechain/blockexec/vm"
)

var (
	dev      = genesis.DevAccounts()[0]
	bob      = thor.BytesToAddress([]byte("bob"))
	coinbase = thor.BytesToAddress([]byte("coinbase"))
	executor = runtime.New(vm.NewBuiltin())
)

func transfer(t *testing.T, bs *blockstate.BlockState, value int64) *tx.Transaction {
	nonce, err := bs.GetNonce(dev.Address)
	require.NoError(t, err)
	trx := tx.MustSign(tx.NewBuilder().
		Nonce(nonce).
		GasPrice(thor.DefaultGasPrice).
		Gas(thor.DefaultStartGas).
		To(&bob).
		Value(big.NewInt(value)).
		Build(), dev.Signer)
	_, err = executor.ApplyTransaction(bs, trx)
	require.NoError(t, err)
	return trx
}

type parents map[thor.Bytes32]*block.Header

func (p parents) GetBlockHeader(id thor.Bytes32) (*block.Header, error) {
	if h, ok := p[id]; ok {
		return h, nil
	}
	return nil, errors.New("not found")
}

func TestGenesis(t *testing.T) {
	gen := genesis.NewDevnet()
	bs, err := blockstate.Genesis(muxdb.NewMem(), gen)
	require.NoError(t, err)

	assert.False(t, bs.HasParent())
	_, err = bs.Parent()
	assert.Equal(t, blockstate.ErrInvalidParent, err)
	assert.Equal(t, uint32(0), bs.Number())
	assert.Equal(t, thor.InitialGasLimit, bs.GasLimit())
	assert.Equal(t, uint64(0), bs.GasUsed())
	assert.Equal(t, gen, bs.Genesis())
	assert.Empty(t, bs.Transactions())
	assert.Equal(t, thor.EmptyRoot, bs.TxsRoot())

	nonce, err := bs.GetNonce(thor.BytesToAddress([]byte("nobody")))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)

	// sealing an untouched genesis state yields the genesis block
	blk, receipts, err := bs.Seal()
	require.NoError(t, err)
	assert.Equal(t, gen.ID(), blk.Header().ID())
	assert.Empty(t, receipts)
}

func TestSnapshotRevert(t *testing.T) {
	bs, err := blockstate.Genesis(muxdb.NewMem(), genesis.NewDevnet())
	require.NoError(t, err)

	empty := bs.Snapshot()
	transfer(t, bs, 1)
	snap1 := bs.Snapshot()
	assert.Equal(t, uint32(1), snap1.TxCount)
	assert.NotEqual(t, empty, snap1)

	trx2 := transfer(t, bs, 2)
	snap2 := bs.Snapshot()

	require.NoError(t, bs.Revert(snap1))
	assert.Equal(t, snap1, bs.Snapshot())
	assert.Len(t, bs.Transactions(), 1)
	assert.Len(t, bs.Receipts(), 1)
	nonce, _ := bs.GetNonce(dev.Address)
	assert.Equal(t, uint64(1), nonce)

	// re-applying yields the same snapshot
	_, err = executor.ApplyTransaction(bs, trx2)
	require.NoError(t, err)
	assert.Equal(t, snap2, bs.Snapshot())

	require.NoError(t, bs.Revert(empty))
	assert.Equal(t, empty, bs.Snapshot())
	assert.Empty(t, bs.Transactions())
	bal, _ := bs.State().GetBalance(bob)
	assert.Equal(t, 0, bal.Sign())

	// roll forward to a later snapshot
	require.NoError(t, bs.Revert(snap2))
	assert.Equal(t, snap2, bs.Snapshot())
	require.Len(t, bs.Transactions(), 2)
	assert.Equal(t, trx2.ID(), bs.Transactions()[1].ID())
}

func TestRevertAcrossStates(t *testing.T) {
	gen := genesis.NewDevnet()
	db := muxdb.NewMem()
	canonical, err := blockstate.Genesis(db, gen)
	require.NoError(t, err)
	transfer(t, canonical, 1)
	transfer(t, canonical, 2)
	snap := canonical.Snapshot()

	fork, err := db.Fork()
	require.NoError(t, err)
	ephemeral, err := canonical.Derive(fork)
	require.NoError(t, err)
	assert.Empty(t, ephemeral.Transactions())

	require.NoError(t, ephemeral.Revert(snap))
	assert.Equal(t, snap, ephemeral.Snapshot())
	assert.Equal(t, canonical.Transactions().RootHash(), ephemeral.Transactions().RootHash())
	assert.Equal(t, canonical.Receipts().RootHash(), ephemeral.Receipts().RootHash())

	// diverge on the fork
	transfer(t, ephemeral, 3)
	assert.Equal(t, snap, canonical.Snapshot())
	assert.Len(t, canonical.Transactions(), 2)
}

func TestRevertInvalidSnapshot(t *testing.T) {
	bs, err := blockstate.Genesis(muxdb.NewMem(), genesis.NewDevnet())
	require.NoError(t, err)
	transfer(t, bs, 1)
	before := bs.Snapshot()

	overCounted := before
	overCounted.TxCount = 2

	for name, snap := range map[string]blockstate.Snapshot{
		"state root":       {StateRoot: thor.Blake2b([]byte("missing")), TxsRoot: thor.EmptyRoot, ReceiptsRoot: thor.EmptyRoot},
		"txs root":         {StateRoot: before.StateRoot, TxsRoot: thor.Blake2b([]byte("missing")), ReceiptsRoot: before.ReceiptsRoot, TxCount: 1},
		"receipts root":    {StateRoot: before.StateRoot, TxsRoot: before.TxsRoot, ReceiptsRoot: thor.Blake2b([]byte("missing")), TxCount: 1},
		"empty txs root":   {StateRoot: before.StateRoot, TxsRoot: thor.EmptyRoot, ReceiptsRoot: thor.EmptyRoot, TxCount: 1},
		"tx count too big": overCounted,
	} {
		err := bs.Revert(snap)
		assert.True(t, errors.Is(err, blockstate.ErrInvalidSnapshot), name)
		assert.Equal(t, before, bs.Snapshot(), name)
	}
}

func TestInitFromParent(t *testing.T) {
	db := muxdb.NewMem()
	gen, err := blockstate.Genesis(db, genesis.NewDevnet())
	require.NoError(t, err)
	transfer(t, gen, 10)
	blk, _, err := gen.Seal()
	require.NoError(t, err)
	parent := blk.Header()

	bs, err := blockstate.InitFromParent(db, parents{parent.ID(): parent}, parent, coinbase, parent.Timestamp()+thor.BlockInterval)
	require.NoError(t, err)
	assert.True(t, bs.HasParent())
	p, err := bs.Parent()
	require.NoError(t, err)
	assert.Equal(t, parent.ID(), p.ID())
	assert.Equal(t, parent.ID(), bs.ParentID())
	assert.Equal(t, uint32(1), bs.Number())
	assert.Equal(t, coinbase, bs.Coinbase())
	assert.Equal(t, parent.Timestamp()+thor.BlockInterval, bs.Timestamp())
	assert.Equal(t, parent.GasLimit(), bs.GasLimit())
	assert.Equal(t, uint64(0), bs.GasUsed())
	assert.Empty(t, bs.Transactions())
	assert.Equal(t, parent.StateRoot(), bs.StateRoot())

	bal, _ := bs.State().GetBalance(bob)
	assert.Equal(t, big.NewInt(10), bal)
	nonce, _ := bs.GetNonce(dev.Address)
	assert.Equal(t, uint64(1), nonce)

	// unknown to the parent reader
	_, err = blockstate.InitFromParent(db, parents{}, parent, coinbase, 0)
	assert.True(t, errors.Is(err, blockstate.ErrInvalidParent))

	// state root not retained
	orphan := new(block.Builder).ParentID(parent.ID()).StateRoot(thor.Blake2b([]byte("gone"))).GasLimit(thor.InitialGasLimit).Build().Header()
	_, err = blockstate.InitFromParent(db, nil, orphan, coinbase, 0)
	assert.True(t, errors.Is(err, blockstate.ErrInvalidParent))

	_, err = blockstate.InitFromParent(db, nil, nil, coinbase, 0)
	assert.Equal(t, blockstate.ErrInvalidParent, err)

	// gas limit
	limit := thor.GasLimit(parent.GasLimit() * 2).Qualify(parent.GasLimit())
	bs, err = blockstate.InitFromParent(db, nil, parent, coinbase, 0, blockstate.WithGasLimit(limit))
	require.NoError(t, err)
	assert.Equal(t, limit, bs.GasLimit())
	_, err = blockstate.InitFromParent(db, nil, parent, coinbase, 0, blockstate.WithGasLimit(parent.GasLimit()*2))
	assert.Error(t, err)

	// derive keeps parent, coinbase, timestamp and gas limit
	transfer(t, bs, 1)
	derived, err := bs.Derive(db)
	require.NoError(t, err)
	assert.Equal(t, bs.ParentID(), derived.ParentID())
	assert.Equal(t, bs.Coinbase(), derived.Coinbase())
	assert.Equal(t, bs.Timestamp(), derived.Timestamp())
	assert.Equal(t, bs.GasLimit(), derived.GasLimit())
	assert.Equal(t, parent.StateRoot(), derived.StateRoot())
	assert.Empty(t, derived.Transactions())
}

func TestSeal(t *testing.T) {
	db := muxdb.NewMem()
	bs, err := blockstate.Genesis(db, genesis.NewDevnet())
	require.NoError(t, err)
	trx := transfer(t, bs, 1)
	snap := bs.Snapshot()

	blk, receipts, err := bs.Seal()
	require.NoError(t, err)
	h := blk.Header()
	assert.Equal(t, snap.StateRoot, h.StateRoot())
	assert.Equal(t, snap.TxsRoot, h.TxsRoot())
	assert.Equal(t, snap.ReceiptsRoot, h.ReceiptsRoot())
	assert.Equal(t, snap.GasUsed, h.GasUsed())
	assert.Equal(t, uint32(1), h.TxCount())
	assert.Equal(t, receipts.RootHash(), h.ReceiptsRoot())
	assert.Equal(t, trx.ID(), blk.Transactions()[0].ID())
	assert.True(t, bs.IsSealed())

	_, _, err = bs.Seal()
	assert.Equal(t, blockstate.ErrSealed, err)
	assert.Equal(t, blockstate.ErrSealed, bs.Revert(snap))
	assert.Equal(t, blockstate.ErrSealed, bs.Commit(trx, receipts[0]))

	// clone is the way to continue
	cloned, err := bs.Clone()
	require.NoError(t, err)
	assert.False(t, cloned.IsSealed())
	assert.Equal(t, snap, cloned.Snapshot())
	transfer(t, cloned, 2)
	assert.Equal(t, snap, bs.Snapshot())
	assert.Len(t, bs.Transactions(), 1)
	assert.Len(t, cloned.Transactions(), 2)
}
