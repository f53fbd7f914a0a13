// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks whether the node keeps producing blocks.
package health

import (
	"sync"
	"time"

	"github.com/vechain/blockexec/thor"
)

type BlockIngestion struct {
	BestBlock                   *thor.Bytes32 `json:"bestBlock"`
	BestBlockIngestionTimestamp *time.Time    `json:"bestBlockIngestionTimestamp"`
}

type Status struct {
	Healthy        bool            `json:"healthy"`
	BlockIngestion *BlockIngestion `json:"blockIngestion"`
}

type Health struct {
	lock              sync.RWMutex
	newBestBlock      time.Time
	bestBlockID       *thor.Bytes32
	timeBetweenBlocks time.Duration
}

// New creates a health tracker. The node is unhealthy once no new best block arrives
// for two intervals.
func New(timeBetweenBlocks time.Duration) *Health {
	return &Health{
		timeBetweenBlocks: timeBetweenBlocks,
	}
}

func (h *Health) NewBestBlock(id thor.Bytes32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newBestBlock = time.Now()
	h.bestBlockID = &id
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if h.bestBlockID == nil {
		return &Status{Healthy: false, BlockIngestion: &BlockIngestion{}}
	}
	ingested := h.newBestBlock
	return &Status{
		Healthy: time.Since(ingested) <= 2*h.timeBetweenBlocks,
		BlockIngestion: &BlockIngestion{
			BestBlock:                   h.bestBlockID,
			BestBlockIngestionTimestamp: &ingested,
		},
	}
}
