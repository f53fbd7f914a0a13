// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pruner reclaims trie nodes no longer reachable from retained snapshots.
package pruner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/co"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/metrics"
	"github.com/vechain/blockexec/muxdb"
)

var (
	logger = log.WithContext("pkg", "pruner")

	metricLiveNodes = metrics.LazyLoadGauge("pruner_live_nodes")
	metricPruneTime = metrics.LazyLoadHistogram("pruner_duration_ms", metrics.Bucket10s)
)

const (
	propsStoreName = "pruner.props"
	statusKey      = "status"
)

// Prune deletes every trie node in db that is not reachable from the kept snapshots.
// After pruning, reverting to any other snapshot fails with blockstate.ErrInvalidSnapshot.
// It returns the count of deleted nodes.
//
// Nothing else may write tries to db while pruning, and forks of db must not be in use.
func Prune(ctx context.Context, db *muxdb.MuxDB, keep ...blockstate.Snapshot) (int, error) {
	if db.IsForked() {
		return 0, muxdb.ErrForked
	}
	startTime := time.Now()

	live := newLiveSet()
	if err := mark(ctx, db, live, keep); err != nil {
		return 0, errors.Wrap(err, "mark live nodes")
	}
	metricLiveNodes().Set(int64(live.Len()))

	n, err := db.PruneTrieNodes(ctx, live.Has)
	if err != nil {
		return n, errors.Wrap(err, "sweep")
	}
	metricPruneTime().Observe(time.Since(startTime).Milliseconds())
	logger.Debug("pruned", "snapshots", len(keep), "live", live.Len(), "pruned", n, "elapsed", time.Since(startTime))
	return n, nil
}

// HeaderSnapshot returns the snapshot at the end of the block.
func HeaderSnapshot(h *block.Header) blockstate.Snapshot {
	return blockstate.Snapshot{
		StateRoot:    h.StateRoot(),
		TxsRoot:      h.TxsRoot(),
		ReceiptsRoot: h.ReceiptsRoot(),
		TxCount:      h.TxCount(),
		GasUsed:      h.GasUsed(),
	}
}

// Options for the background pruner.
type Options struct {
	// KeepBlocks is the count of recent canonical blocks whose end snapshots are retained.
	KeepBlocks uint32
	// Interval is the count of blocks between two prune cycles.
	Interval uint32
}

// DefaultOptions keeps the latest 128 blocks, and prunes every 128 blocks.
var DefaultOptions = Options{KeepBlocks: 128, Interval: 128}

type status struct {
	Cycles     uint64
	LastPruned uint32
}

func (s *status) Load(db *muxdb.MuxDB) error {
	store := db.NewStore(propsStoreName)
	data, err := store.Get([]byte(statusKey))
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, s)
}

func (s *status) Save(db *muxdb.MuxDB) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return db.NewStore(propsStoreName).Put([]byte(statusKey), data)
}

// Pruner prunes periodically, retaining the snapshots of recent canonical blocks.
type Pruner struct {
	db      *muxdb.MuxDB
	repo    *chain.Repository
	options Options
	// held while pruning, to exclude trie writers and forks.
	locker sync.Locker
	ctx    context.Context
	cancel func()
	goes   co.Goes
}

// New creates and starts a pruner. locker must be held by anything writing tries to db
// or using a fork of db.
func New(db *muxdb.MuxDB, repo *chain.Repository, locker sync.Locker, options Options) *Pruner {
	if options.KeepBlocks == 0 {
		options.KeepBlocks = 1
	}
	if options.Interval == 0 {
		options.Interval = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pruner{
		db:      db,
		repo:    repo,
		options: options,
		locker:  locker,
		ctx:     ctx,
		cancel:  cancel,
	}
	p.goes.Go(func() {
		if err := p.loop(); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn("pruner interrupted", "err", err)
			}
		}
	})
	return p
}

// Stop stops the pruner.
func (p *Pruner) Stop() {
	p.cancel()
	p.goes.Wait()
}

func (p *Pruner) loop() error {
	var status status
	if err := status.Load(p.db); err != nil {
		return err
	}
	logger.Info("pruner started", "cycles", status.Cycles, "lastPruned", status.LastPruned)

	ticker := p.repo.NewTicker()
	for {
		best := p.repo.BestBlockSummary().Header.Number()
		if best >= status.LastPruned+p.options.Interval {
			n, err := p.pruneCycle(best)
			switch {
			case err == nil:
				status.Cycles++
				status.LastPruned = best
				if err := status.Save(p.db); err != nil {
					return err
				}
				logger.Info("pruned stale nodes", "best", best, "count", n)
			case p.ctx.Err() != nil:
				return p.ctx.Err()
			default:
				// retried on the next best block
				logger.Warn("failed to prune", "best", best, "err", err)
			}
		}

		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-ticker.C():
		}
	}
}

// keepSnapshots returns end snapshots of canonical blocks in (best-KeepBlocks, best].
func (p *Pruner) keepSnapshots(best uint32) ([]blockstate.Snapshot, error) {
	var from uint32
	if best >= p.options.KeepBlocks {
		from = best - p.options.KeepBlocks + 1
	}
	snaps := make([]blockstate.Snapshot, 0, best-from+1)
	for n := from; ; n++ {
		id, err := p.repo.GetBlockIDByNumber(n)
		if err != nil {
			return nil, err
		}
		h, err := p.repo.GetBlockHeader(id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, HeaderSnapshot(h))
		if n == best {
			return snaps, nil
		}
	}
}

func (p *Pruner) pruneCycle(best uint32) (int, error) {
	p.locker.Lock()
	defer p.locker.Unlock()

	// the best block may move before the lock acquired
	if cur := p.repo.BestBlockSummary().Header.Number(); cur > best {
		best = cur
	}
	snaps, err := p.keepSnapshots(best)
	if err != nil {
		return 0, err
	}
	return Prune(p.ctx, p.db, snaps...)
}
