// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime applies transactions to block states.
package runtime

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/metrics"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
	"github.com/vechain/blockexec/vm"
)

var (
	logger          = log.WithContext("pkg", "runtime")
	metricTxApplied = metrics.LazyLoadCounterVec("tx_applied_count", []string{"result"})
	metricTxGasUsed = metrics.LazyLoadHistogram("tx_gas_used", []int64{21000, 50000, 100000, 500000, 1000000, 5000000})
)

// ResultKind discriminates applied txs.
type ResultKind int

const (
	// Succeeded means the tx is applied and the execution succeeded.
	Succeeded ResultKind = iota
	// Failed means the tx is applied, but the execution failed. Only gas and nonce are charged.
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the result of an applied tx. Rejected txs have no result, the
// *InvalidTxError is returned instead.
type Result struct {
	Kind    ResultKind
	Output  []byte
	Receipt *tx.Receipt
	// VMErr is the execution error when Kind is Failed.
	VMErr error
}

// Succeeded returns whether the execution succeeded.
func (r *Result) Succeeded() bool {
	return r.Kind == Succeeded
}

// Executor applies txs to block states using the vm.
type Executor struct {
	vm vm.VM
}

// New creates an executor.
func New(machine vm.VM) *Executor {
	return &Executor{vm: machine}
}

// Validate checks the tx against the block state without applying it.
// It returns the sender on success, or the *InvalidTxError.
func (e *Executor) Validate(bs *blockstate.BlockState, trx *tx.Transaction) (thor.Address, error) {
	if bs.IsSealed() {
		return thor.Address{}, blockstate.ErrSealed
	}
	resolved, err := ResolveTransaction(bs, trx)
	if err != nil {
		return thor.Address{}, err
	}
	return resolved.Origin, nil
}

// ApplyTransaction validates and applies the tx to the block state.
//
// A rejected tx returns *InvalidTxError and changes nothing. An applied tx increments
// the sender nonce, charges the used gas, and is recorded along with its receipt, whether
// the execution succeeded or not. A failed execution leaves no other changes.
// Other errors are fatal, and bs should be discarded.
func (e *Executor) ApplyTransaction(bs *blockstate.BlockState, trx *tx.Transaction) (*Result, error) {
	if bs.IsSealed() {
		return nil, blockstate.ErrSealed
	}
	resolved, err := ResolveTransaction(bs, trx)
	if err != nil {
		if IsInvalidTx(err) {
			metricTxApplied().AddWithLabel(1, map[string]string{"result": "rejected"})
			logger.Trace("tx rejected", "id", trx.ID(), "err", err)
		}
		return nil, err
	}

	result, err := e.apply(bs, resolved)
	if err != nil {
		if dErr := bs.Discard(); dErr != nil {
			logger.Warn("failed to discard state changes", "err", dErr)
		}
		return nil, errors.Wrap(err, "apply tx")
	}

	metricTxApplied().AddWithLabel(1, map[string]string{"result": result.Kind.String()})
	metricTxGasUsed().Observe(int64(result.Receipt.GasUsed))
	logger.Debug("tx applied", "id", trx.ID(), "origin", resolved.Origin, "result", result.Kind, "gasUsed", result.Receipt.GasUsed)
	return result, nil
}

func (e *Executor) apply(bs *blockstate.BlockState, resolved *ResolvedTransaction) (*Result, error) {
	var (
		trx = resolved.tx
		st  = bs.State()
	)

	if err := st.SetNonce(resolved.Origin, trx.Nonce()+1); err != nil {
		return nil, err
	}
	returnGas, err := resolved.BuyGas(bs)
	if err != nil {
		return nil, err
	}

	ctx := &vm.Context{
		BlockNumber: bs.Number(),
		Timestamp:   bs.Timestamp(),
		Coinbase:    bs.Coinbase(),
		GasLimit:    bs.GasLimit(),
		GasPrice:    trx.GasPrice(),
		Origin:      resolved.Origin,
		TxID:        trx.ID(),
	}

	// checkpoint to be reverted when execution failed.
	checkpoint := st.NewCheckpoint()

	execGas := trx.Gas() - resolved.IntrinsicGas
	var out *vm.Output
	if to := trx.To(); to == nil {
		out, err = e.vm.Create(ctx, st, resolved.Origin, trx.Nonce(), trx.Data(), trx.Value(), execGas)
	} else {
		out, err = e.vm.Call(ctx, st, resolved.Origin, *to, trx.Data(), trx.Value(), execGas)
	}
	if err != nil {
		return nil, err
	}
	if out.LeftOverGas > execGas {
		return nil, errors.Errorf("vm returned left over gas %v more than provided %v", out.LeftOverGas, execGas)
	}

	receipt := &tx.Receipt{
		GasUsed: trx.Gas() - out.LeftOverGas,
		Output:  out.Data,
		Logs:    out.Logs,
	}
	if out.VMErr != nil {
		st.RevertTo(checkpoint)
		receipt.Reverted = true
		receipt.Logs = nil
	} else {
		receipt.ContractAddress = out.ContractAddress
	}

	if err := returnGas(out.LeftOverGas); err != nil {
		return nil, err
	}
	receipt.Paid = new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), trx.GasPrice())

	// fees go to the coinbase
	if receipt.Paid.Sign() > 0 {
		balance, err := st.GetBalance(bs.Coinbase())
		if err != nil {
			return nil, err
		}
		if err := st.SetBalance(bs.Coinbase(), balance.Add(balance, receipt.Paid)); err != nil {
			return nil, err
		}
	}

	if err := bs.Commit(trx, receipt); err != nil {
		return nil, err
	}

	result := &Result{
		Kind:    Succeeded,
		Output:  out.Data,
		Receipt: receipt,
	}
	if out.VMErr != nil {
		result.Kind = Failed
		result.VMErr = out.VMErr
	}
	return result, nil
}
