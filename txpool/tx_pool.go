// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package txpool keeps admitted transactions until they are packed into blocks.
package txpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/event"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/co"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

const (
	// max size of tx allowed
	MaxTxSize = 64 * 1024
)

var logger = log.WithContext("pkg", "txpool")

// Options options for tx pool.
type Options struct {
	Limit           int
	LimitPerAccount int
	MaxLifetime     time.Duration
}

// DefaultOptions is used when no options given.
var DefaultOptions = Options{
	Limit:           10000,
	LimitPerAccount: 16,
	MaxLifetime:     20 * time.Minute,
}

// TxEvent will be posted when tx is added or status changed.
type TxEvent struct {
	Tx         *tx.Transaction
	Executable *bool
}

// TxPool maintains unprocessed transactions.
type TxPool struct {
	options Options
	repo    *chain.Repository
	stater  *state.Stater

	washLock       sync.Mutex
	washedHead     thor.Bytes32
	executables    atomic.Value
	all            *txObjectMap
	addedAfterWash atomic.Uint32

	ctx    context.Context
	cancel func()
	txFeed event.Feed
	scope  event.SubscriptionScope
	goes   co.Goes
}

// New create a new TxPool instance.
// Close is required to be called at end.
func New(repo *chain.Repository, stater *state.Stater, options Options) *TxPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &TxPool{
		options: options,
		repo:    repo,
		stater:  stater,
		all:     newTxObjectMap(),
		ctx:     ctx,
		cancel:  cancel,
	}

	pool.goes.Go(pool.housekeeping)
	return pool
}

func (p *TxPool) housekeeping() {
	logger.Debug("enter housekeeping")
	defer logger.Debug("leave housekeeping")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	headTicker := p.repo.NewTicker()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-headTicker.C():
			headTicker = p.repo.NewTicker()
			p.update(true)
		case <-ticker.C:
			p.update(false)
		}
	}
}

// update washes the pool when the head changed, the pool is over limit, or new txs added.
func (p *TxPool) update(force bool) {
	p.washLock.Lock()
	defer p.washLock.Unlock()

	headSummary := p.repo.BestBlockSummary()
	headChanged := headSummary.Header.ID() != p.washedHead
	poolLen := p.all.Len()
	if !force && !headChanged && poolLen <= p.options.Limit && p.addedAfterWash.Load() == 0 {
		return
	}
	p.addedAfterWash.Store(0)

	startTime := mclock.Now()
	executables, removed, err := p.wash(headSummary)
	elapsed := mclock.Now() - startTime

	ctx := []any{
		"len", poolLen,
		"removed", removed,
		"elapsed", common.PrettyDuration(elapsed),
	}
	if err != nil {
		ctx = append(ctx, "err", err)
	} else {
		p.washedHead = headSummary.Header.ID()
		p.executables.Store(executables)
		metricTxPoolExecutablesGauge().Set(int64(len(executables)))
	}
	if removed > 0 {
		metricTxPoolGauge().AddWithLabel(0-int64(removed), map[string]string{"source": "washed"})
	}
	logger.Trace("wash done", ctx...)
}

// Close cleanup inner go routines.
func (p *TxPool) Close() {
	p.cancel()
	p.scope.Close()
	p.goes.Wait()
	logger.Debug("closed")
}

// SubscribeTxEvent receivers will receive a tx
func (p *TxPool) SubscribeTxEvent(ch chan *TxEvent) event.Subscription {
	return p.scope.Track(p.txFeed.Subscribe(ch))
}

// AddTransaction adds a new tx into pool. origin is the peer the tx is relayed from, or nil if
// it's submitted locally. It's not assumed as an error if the tx is already in the pool, and the
// tx event is posted again if forceBroadcast.
func (p *TxPool) AddTransaction(newTx *tx.Transaction, origin *thor.Address, forceBroadcast bool) (err error) {
	localSubmitted := origin == nil
	source := "local"
	if !localSubmitted {
		source = "remote"
	}
	defer func() {
		if err != nil {
			metricBadTxGauge().AddWithLabel(1, map[string]string{"source": source})
		}
	}()

	if existing := p.all.GetByID(newTx.ID()); existing != nil {
		// tx already in the pool
		if forceBroadcast {
			executable := existing.executable
			p.goes.Go(func() {
				p.txFeed.Send(&TxEvent{existing.Transaction, &executable})
			})
		}
		return nil
	}

	if newTx.Size() > MaxTxSize {
		return txRejectedError{"size too large"}
	}

	txObj, err := resolveTx(newTx, localSubmitted)
	if err != nil {
		return badTxError{err.Error()}
	}

	if !localSubmitted {
		// reject when pool size exceeds limit
		if p.all.Len() >= p.options.Limit {
			return txRejectedError{"pool is full"}
		}
	}

	headSummary := p.repo.BestBlockSummary()
	st, err := p.stater.NewState(headSummary.Header.StateRoot())
	if err != nil {
		return err
	}
	if err := txObj.Validate(st, headSummary.Header); err != nil {
		return txRejectedError{err.Error()}
	}

	if err := p.all.Add(txObj, p.options.LimitPerAccount); err != nil {
		return txRejectedError{err.Error()}
	}

	p.goes.Go(func() {
		p.txFeed.Send(&TxEvent{newTx, nil})
	})
	if origin != nil {
		logger.Trace("tx added", "id", newTx.ID(), "from", origin)
	} else {
		logger.Trace("tx added", "id", newTx.ID())
	}
	p.addedAfterWash.Add(1)
	metricTxPoolGauge().AddWithLabel(1, map[string]string{"source": source})
	return nil
}

// Get get pooled tx by id.
func (p *TxPool) Get(id thor.Bytes32) *tx.Transaction {
	if txObj := p.all.GetByID(id); txObj != nil {
		return txObj.Transaction
	}
	return nil
}

// Remove removes tx from pool by its ID.
func (p *TxPool) Remove(txID thor.Bytes32) bool {
	if p.all.RemoveByID(txID) {
		metricTxPoolGauge().AddWithLabel(-1, map[string]string{"source": "n/a"})
		logger.Debug("tx removed", "id", txID)
		return true
	}
	return false
}

// Executables returns executable txs, ordered by gas price while keeping the nonce order of each sender.
// The pool is washed first if it changed since the last wash.
func (p *TxPool) Executables() tx.Transactions {
	p.update(false)
	if sorted := p.executables.Load(); sorted != nil {
		return sorted.(tx.Transactions)
	}
	return nil
}

// Dump dumps all txs in the pool.
func (p *TxPool) Dump() tx.Transactions {
	return p.all.ToTxs()
}

// Len returns the count of txs in the pool.
func (p *TxPool) Len() int {
	return p.all.Len()
}

// wash to evict txs that are over limit, out of lifetime, out of funds or settled.
func (p *TxPool) wash(headSummary *chain.BlockSummary) (executables tx.Transactions, removed int, err error) {
	all := p.all.ToTxObjects()
	var toRemove []*txObject
	defer func() {
		if err != nil {
			// in case of error, simply cut pool size to limit
			for i, txObj := range all {
				if len(all)-i <= p.options.Limit {
					break
				}
				if p.all.RemoveByID(txObj.ID()) {
					removed++
				}
			}
		} else {
			for _, txObj := range toRemove {
				if p.all.RemoveByID(txObj.ID()) {
					removed++
				}
			}
		}
	}()

	st, err := p.stater.NewState(headSummary.Header.StateRoot())
	if err != nil {
		return nil, 0, err
	}

	var (
		byOrigin = make(map[thor.Address][]*txObject)
		now      = time.Now().UnixNano()
	)
	for _, txObj := range all {
		// out of lifetime
		if !txObj.localSubmitted && now > txObj.timeAdded+int64(p.options.MaxLifetime) {
			toRemove = append(toRemove, txObj)
			logger.Trace("tx washed out", "id", txObj.ID(), "err", "out of lifetime")
			continue
		}
		if txObj.Gas() > headSummary.Header.GasLimit() {
			toRemove = append(toRemove, txObj)
			logger.Trace("tx washed out", "id", txObj.ID(), "err", "gas too large")
			continue
		}
		byOrigin[txObj.Origin()] = append(byOrigin[txObj.Origin()], txObj)
	}

	var (
		executableByOrigin = make(map[thor.Address][]*txObject, len(byOrigin))
		nonExecutableObjs  []*txObject
	)
	for origin, objs := range byOrigin {
		nonce, err := st.GetNonce(origin)
		if err != nil {
			return nil, 0, err
		}
		balance, err := st.GetBalance(origin)
		if err != nil {
			return nil, 0, err
		}
		execs, pending, dropped := pickExecutables(objs, nonce, balance)
		for _, obj := range dropped {
			toRemove = append(toRemove, obj)
			logger.Trace("tx washed out", "id", obj.ID(), "err", "settled or out of funds")
		}
		if len(execs) > 0 {
			executableByOrigin[origin] = execs
		}
		for _, obj := range pending {
			obj.executable = false
			if !obj.localSubmitted {
				nonExecutableObjs = append(nonExecutableObjs, obj)
			}
		}
	}
	executableObjs := mergeByPrice(executableByOrigin)

	limit := p.options.Limit
	// remove over limit txs, from non-executables to low priced
	if len(executableObjs) > limit {
		toRemove = append(toRemove, nonExecutableObjs...)
		for _, txObj := range executableObjs[limit:] {
			toRemove = append(toRemove, txObj)
			logger.Debug("executable tx washed out due to pool limit", "id", txObj.ID())
		}
		executableObjs = executableObjs[:limit]
	} else if len(executableObjs)+len(nonExecutableObjs) > limit {
		for _, txObj := range nonExecutableObjs[limit-len(executableObjs):] {
			toRemove = append(toRemove, txObj)
			logger.Debug("non-executable tx washed out due to pool limit", "id", txObj.ID())
		}
	}

	executables = make(tx.Transactions, 0, len(executableObjs))
	var toBroadcast tx.Transactions
	for _, obj := range executableObjs {
		executables = append(executables, obj.Transaction)
		// the tx is not executable previously
		if !obj.executable {
			obj.executable = true
			toBroadcast = append(toBroadcast, obj.Transaction)
		}
	}

	p.goes.Go(func() {
		executable := true
		for _, trx := range toBroadcast {
			p.txFeed.Send(&TxEvent{trx, &executable})
		}
	})
	return executables, 0, nil
}
