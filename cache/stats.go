// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts cache hits and misses. It's safe for concurrent use.
type Stats struct {
	hit, miss atomic.Int64
	// hit rate in permille at the last call of Stats
	lastRate atomic.Int32
}

// Hit records a hit and returns the total hits.
func (cs *Stats) Hit() int64 { return cs.hit.Add(1) }

// Miss records a miss and returns the total misses.
func (cs *Stats) Miss() int64 { return cs.miss.Add(1) }

// Stats returns the counts of hits and misses, and whether the hit rate
// moved by at least one permille since the previous call.
func (cs *Stats) Stats() (changed bool, hit, miss int64) {
	hit, miss = cs.hit.Load(), cs.miss.Load()
	rate := int32(HitRate(hit, miss) * 1000)
	return cs.lastRate.Swap(rate) != rate, hit, miss
}

// HitRate returns hit / (hit + miss), or 0 when there was no lookup.
func HitRate(hit, miss int64) float64 {
	if lookups := hit + miss; lookups > 0 {
		return float64(hit) / float64(lookups)
	}
	return 0
}
