// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import (
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// Flow the flow of packing a new block.
type Flow struct {
	executor     *runtime.Executor
	parentHeader *block.Header
	bs           *blockstate.BlockState
	processedTxs map[thor.Bytes32]bool // txID -> reverted
}

// ParentHeader returns parent block header.
func (f *Flow) ParentHeader() *block.Header {
	return f.parentHeader
}

// When the timestamp of the new block.
func (f *Flow) When() uint64 {
	return f.bs.Timestamp()
}

// BlockState returns the block state under construction.
func (f *Flow) BlockState() *blockstate.BlockState {
	return f.bs
}

// Adopt try to execute the given transaction.
// If the tx is admitted by the executor (regardless of VM error), it will be included
// by the new block.
func (f *Flow) Adopt(trx *tx.Transaction) error {
	if _, ok := f.processedTxs[trx.ID()]; ok {
		return errKnownTx
	}
	if gasUsed, gasLimit := f.bs.GasUsed(), f.bs.GasLimit(); gasUsed+trx.Gas() > gasLimit {
		// gasUsed < 90% gas limit
		if float64(gasUsed)/float64(gasLimit) < 0.9 {
			// try to find a lower gas tx
			return errTxNotAdoptableNow
		}
		return errGasLimitReached
	}

	result, err := f.executor.ApplyTransaction(f.bs, trx)
	if err != nil {
		if runtime.IsInvalidTx(err) {
			metricAdoptedTxs().AddWithLabel(1, map[string]string{"result": "rejected"})
			if isTemporary(err) {
				return errTxNotAdoptableNow
			}
			return badTxError{err}
		}
		return err
	}
	f.processedTxs[trx.ID()] = result.Receipt.Reverted
	metricAdoptedTxs().AddWithLabel(1, map[string]string{"result": result.Kind.String()})
	return nil
}

// Pack seals the new block. The flow is finished after packed.
func (f *Flow) Pack() (*block.Block, tx.Receipts, error) {
	blk, receipts, err := f.bs.Seal()
	if err != nil {
		return nil, nil, err
	}
	metricBlockGasUsage().Observe(int64(blk.Header().GasUsed() * 100 / blk.Header().GasLimit()))
	return blk, receipts, nil
}
