// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contract

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/metrics"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

var (
	metricCallCount    = metrics.LazyLoadCounterVec("call_count", []string{"result"})
	metricCallDuration = metrics.LazyLoadHistogram("call_duration_ms", []int64{1, 5, 10, 50, 100, 500, 1000})
)

// CallKind discriminates call results.
type CallKind int

const (
	// CallSucceeded means the probe tx is applied and the execution succeeded.
	CallSucceeded CallKind = iota
	// CallFailed means the probe tx is applied, but the execution failed.
	CallFailed
	// CallRejected means the probe tx is invalid, and never applied.
	CallRejected
)

func (k CallKind) String() string {
	switch k {
	case CallSucceeded:
		return "succeeded"
	case CallFailed:
		return "failed"
	case CallRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// CallResult is the result of a simulated call.
type CallResult struct {
	Kind CallKind
	// Output is the returned data, set when the probe tx is applied.
	Output []byte
	// Receipt is the receipt on the ephemeral state, set when the probe tx is applied.
	Receipt *tx.Receipt
	// Err is the execution error when Kind is CallFailed, or the *runtime.InvalidTxError
	// when Kind is CallRejected.
	Err error
	// Gas is the gas provided to the probe tx.
	Gas uint64
}

// Simulator runs calls against block states.
//
// It's safe to run calls concurrently, as long as the block states called against are
// not being mutated.
type Simulator struct {
	executor *runtime.Executor
}

// NewSimulator creates a simulator which applies txs by executor.
func NewSimulator(executor *runtime.Executor) *Simulator {
	return &Simulator{executor}
}

// Call simulates a call to the recipient to against bs, and returns the output if the execution succeeded,
// or nil otherwise. The error is non-nil only for fatal failures, such as *ConsistencyError.
func (s *Simulator) Call(bs *blockstate.BlockState, to any, opts ...Option) ([]byte, error) {
	res, err := s.Simulate(bs, to, opts...)
	if err != nil {
		return nil, err
	}
	if res.Kind != CallSucceeded {
		return nil, nil
	}
	return res.Output, nil
}

// Simulate simulates a call to the recipient to against bs.
//
// The probe tx is applied to an ephemeral state which is identical to bs. It's derived
// from the parent of bs on a fork of its db, with the txs of bs replayed. For a genesis
// state, which has no parent to replay on, the ephemeral state is the genesis state reverted
// to the snapshot of bs. Nothing is written to the db of bs, and bs is verified
// unchanged when done.
func (s *Simulator) Simulate(bs *blockstate.BlockState, to any, opts ...Option) (res *CallResult, err error) {
	startTime := time.Now()
	defer func() {
		result := "error"
		if err == nil {
			result = res.Kind.String()
		}
		metricCallCount().AddWithLabel(1, map[string]string{"result": result})
		metricCallDuration().Observe(time.Since(startTime).Milliseconds())
	}()

	p, err := newParams(opts)
	if err != nil {
		return nil, err
	}
	sender := thor.Address{}
	if p.sender != nil {
		sender = *p.sender
	}
	recipient, err := thor.NormalizeAddress(to, true)
	if err != nil {
		return nil, errors.WithMessage(err, "recipient")
	}

	before := bs.Snapshot()

	fork, err := bs.DB().Fork()
	if err != nil {
		return nil, err
	}
	defer fork.Close()

	ephemeral, err := s.buildEphemeral(bs, fork, before)
	if err != nil {
		return nil, err
	}

	gas := p.startGas
	if gas == 0 {
		gas = ephemeral.GasLimit() - ephemeral.GasUsed()
	}
	// read through a checkout, to leave the caches of bs untouched
	st, err := bs.State().Checkout(before.StateRoot)
	if err != nil {
		return nil, err
	}
	nonce, err := st.GetNonce(sender)
	if err != nil {
		return nil, err
	}
	probe := tx.NewBuilder().
		Nonce(nonce).
		GasPrice(p.gasPrice).
		Gas(gas).
		To(recipient).
		Value(p.value).
		Data(p.data).
		Build().
		WithSender(sender)

	res = &CallResult{Gas: gas}
	applied, err := s.executor.ApplyTransaction(ephemeral, probe)
	switch {
	case err == nil:
		res.Output = applied.Output
		res.Receipt = applied.Receipt
		if applied.Succeeded() {
			res.Kind = CallSucceeded
		} else {
			res.Kind = CallFailed
			res.Err = applied.VMErr
		}
	case runtime.IsInvalidTx(err):
		logger.Debug("invalid transaction", "err", err)
		res.Kind = CallRejected
		res.Err = err
	default:
		return nil, err
	}

	if after := bs.Snapshot(); after != before {
		return nil, &ConsistencyError{Msg: "block state changed during call"}
	}
	return res, nil
}

// buildEphemeral builds the state identical to bs on db.
func (s *Simulator) buildEphemeral(bs *blockstate.BlockState, db *muxdb.MuxDB, before blockstate.Snapshot) (*blockstate.BlockState, error) {
	ephemeral, err := bs.Derive(db)
	if err != nil {
		return nil, err
	}

	if !bs.HasParent() {
		if err := ephemeral.Revert(before); err != nil {
			return nil, &ConsistencyError{Msg: "revert genesis state", Err: err}
		}
		return ephemeral, nil
	}

	receipts := bs.Receipts()
	for i, trx := range bs.Transactions() {
		res, err := s.executor.ApplyTransaction(ephemeral, trx)
		if err != nil {
			return nil, &ConsistencyError{Msg: "replay tx " + trx.ID().String(), Err: err}
		}
		// applied with the same outcome as originally
		if res.Receipt.Reverted != receipts[i].Reverted {
			return nil, &ConsistencyError{Msg: "replay tx " + trx.ID().String() + " with different outcome"}
		}
	}
	if replayed := ephemeral.Snapshot(); replayed != before {
		return nil, &ConsistencyError{Msg: "replayed state mismatch"}
	}
	return ephemeral, nil
}
