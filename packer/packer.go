// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package packer drains executable txs into new blocks on top of the best block.
package packer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

var logger = log.WithContext("pkg", "packer")

// Pool is the source of txs to be packed.
type Pool interface {
	Executables() tx.Transactions
	Remove(txID thor.Bytes32) bool
}

// Packer to pack txs and build new blocks.
//
// Packer serializes the mutation of the chain head. Pack holds the write lock, and
// Pending holds the read lock.
type Packer struct {
	repo           *chain.Repository
	db             *muxdb.MuxDB
	executor       *runtime.Executor
	coinbase       thor.Address
	targetGasLimit uint64
	lock           sync.RWMutex
}

// New create a new Packer instance.
// Zero gasLimit means to follow the gas limit of the parent block.
func New(
	repo *chain.Repository,
	db *muxdb.MuxDB,
	executor *runtime.Executor,
	coinbase thor.Address,
	gasLimit uint64,
) *Packer {
	return &Packer{
		repo:           repo,
		db:             db,
		executor:       executor,
		coinbase:       coinbase,
		targetGasLimit: gasLimit,
	}
}

// Locker returns the lock to be held by anything that writes tries to the db
// out of the packer, or removes trie nodes from it.
func (p *Packer) Locker() sync.Locker {
	return &p.lock
}

// SetTargetGasLimit set target gas limit, the Packer will adjust block gas limit close to
// it as it can.
func (p *Packer) SetTargetGasLimit(gl uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.targetGasLimit = gl
}

// Schedule creates a packing flow on top of the best block. Zero timestamp means
// one block interval after the parent.
//
// The caller should hold the lock until the flow is finished.
func (p *Packer) Schedule(timestamp uint64) (*Flow, error) {
	parent := p.repo.BestBlockSummary().Header
	if timestamp == 0 {
		timestamp = parent.Timestamp() + thor.BlockInterval
	}
	if timestamp <= parent.Timestamp() {
		return nil, errors.Errorf("timestamp %v not after parent %v", timestamp, parent.Timestamp())
	}

	var opts []blockstate.Option
	if p.targetGasLimit != 0 {
		opts = append(opts, blockstate.WithGasLimit(thor.GasLimit(p.targetGasLimit).Qualify(parent.GasLimit())))
	}
	bs, err := blockstate.InitFromParent(p.db, p.repo, parent, p.coinbase, timestamp, opts...)
	if err != nil {
		return nil, err
	}
	return &Flow{
		executor:     p.executor,
		parentHeader: parent,
		bs:           bs,
		processedTxs: make(map[thor.Bytes32]bool),
	}, nil
}

// Pack packs executables of the pool into a new block, and stores it as the best block.
// Adopted txs and txs that can never be adopted are removed from the pool.
func (p *Packer) Pack(pool Pool, timestamp uint64) (*block.Block, tx.Receipts, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	flow, err := p.Schedule(timestamp)
	if err != nil {
		return nil, nil, err
	}

	var adopted []thor.Bytes32
	for _, trx := range pool.Executables() {
		if err := flow.Adopt(trx); err != nil {
			if IsGasLimitReached(err) {
				break
			}
			if IsTxNotAdoptableNow(err) || IsKnownTx(err) {
				continue
			}
			if IsBadTx(err) {
				logger.Debug("bad tx dropped", "id", trx.ID(), "err", err)
				pool.Remove(trx.ID())
				continue
			}
			return nil, nil, err
		}
		adopted = append(adopted, trx.ID())
	}

	blk, receipts, err := flow.Pack()
	if err != nil {
		return nil, nil, err
	}
	if err := p.repo.AddBlock(blk, receipts, true); err != nil {
		return nil, nil, errors.Wrap(err, "add block")
	}
	for _, id := range adopted {
		pool.Remove(id)
	}

	metricPackedBlocks().Add(1)
	h := blk.Header()
	logger.Info("📦 new block packed",
		"txs", len(receipts),
		"mgas", float64(h.GasUsed())/1000/1000,
		"id", h.ID().AbbrevString(),
	)
	return blk, receipts, nil
}

// Pending runs fn with a fresh block state on top of the best block, which contains no txs.
// fn must not keep bs after returned.
func (p *Packer) Pending(fn func(bs *blockstate.BlockState) error) error {
	p.lock.RLock()
	defer p.lock.RUnlock()

	flow, err := p.Schedule(0)
	if err != nil {
		return err
	}
	return fn(flow.bs)
}
