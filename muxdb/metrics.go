// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"github.com/vechain/blockexec/metrics"
)

var (
	metricCacheHitMiss   = metrics.LazyLoadGaugeVec("cache_hit_miss_count", []string{"type", "event"})
	metricPrunedNodes    = metrics.LazyLoadCounter("trie_pruned_nodes_count")
	metricCommittedNodes = metrics.LazyLoadCounter("trie_committed_nodes_count")
)
