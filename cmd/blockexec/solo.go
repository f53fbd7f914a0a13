// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/health"
	"github.com/vechain/blockexec/packer"
)

// solo packs the executable txs of the pool into a new block every interval.
type solo struct {
	repo     *chain.Repository
	txPool   packer.Pool
	packer   *packer.Packer
	interval time.Duration
	health   *health.Health
}

func newSolo(repo *chain.Repository, txPool packer.Pool, pk *packer.Packer, interval time.Duration, h *health.Health) *solo {
	return &solo{repo, txPool, pk, interval, h}
}

// Run runs the packing loop until ctx is done.
func (s *solo) Run(ctx context.Context) error {
	logger.Info("prepared to pack block", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping packing service...")
			return nil
		case now := <-ticker.C:
			if _, err := s.pack(uint64(now.Unix())); err != nil {
				logger.Error("failed to pack block", "err", err)
			}
		}
	}
}

func (s *solo) pack(now uint64) (*block.Block, error) {
	// the packer schedules at the parent's next slot when the clock falls behind
	timestamp := now
	if best := s.repo.BestBlockSummary().Header; timestamp <= best.Timestamp() {
		timestamp = 0
	}
	blk, _, err := s.packer.Pack(s.txPool, timestamp)
	if err != nil {
		return nil, err
	}
	if s.health != nil {
		s.health.NewBestBlock(blk.Header().ID())
	}
	return blk, nil
}
