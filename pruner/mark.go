// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pruner

import (
	"context"
	goruntime "runtime"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"golang.org/x/sync/errgroup"
)

// liveSet is the set of reachable trie nodes.
type liveSet struct {
	lock  sync.Mutex
	nodes map[thor.Bytes32]struct{}
}

func newLiveSet() *liveSet {
	return &liveSet{nodes: make(map[thor.Bytes32]struct{})}
}

// Mark adds the hash, and returns false if it's already marked.
func (s *liveSet) Mark(hash thor.Bytes32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.nodes[hash]; ok {
		return false
	}
	s.nodes[hash] = struct{}{}
	return true
}

func (s *liveSet) Has(hash thor.Bytes32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.nodes[hash]
	return ok
}

func (s *liveSet) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.nodes)
}

// mark walks all tries reachable from the snapshots, including the storage tries.
// A subtree already marked is skipped, so shared nodes are walked once.
func mark(ctx context.Context, db *muxdb.MuxDB, live *liveSet, snapshots []blockstate.Snapshot) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())

	walk := func(root thor.Bytes32, onLeaf func(key, value []byte) error) func() error {
		return func() error {
			t, err := db.NewTrie(root)
			if err != nil {
				return err
			}
			return t.Walk(func(hash thor.Bytes32) bool {
				return gctx.Err() == nil && live.Mark(hash)
			}, onLeaf)
		}
	}

	onAccount := func(_, value []byte) error {
		var acc state.Account
		if err := rlp.DecodeBytes(value, &acc); err != nil {
			return err
		}
		if root := thor.BytesToBytes32(acc.StorageRoot); len(acc.StorageRoot) > 0 && root != thor.EmptyRoot {
			// the storage trie is walked in the same goroutine, to not block on the group limit
			return walk(root, nil)()
		}
		return nil
	}

	for _, snap := range snapshots {
		g.Go(walk(snap.StateRoot, onAccount))
		g.Go(walk(snap.TxsRoot, nil))
		g.Go(walk(snap.ReceiptsRoot, nil))
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// the group context is always done after Wait, so check the caller's
	return ctx.Err()
}
