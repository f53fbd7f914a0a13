// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import "github.com/vechain/blockexec/metrics"

var (
	metricAdoptedTxs    = metrics.LazyLoadCounterVec("packer_adopted_tx_count", []string{"result"})
	metricPackedBlocks  = metrics.LazyLoadCounter("packer_packed_block_count")
	metricBlockGasUsage = metrics.LazyLoadHistogram("packer_block_gas_usage_percent", []int64{0, 10, 25, 50, 75, 90, 100})
)
