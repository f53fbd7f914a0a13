// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/vechain/blockexec/contract"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
)

// Account for marshal account
type Account struct {
	Balance *math.HexOrDecimal256 `json:"balance"`
	Nonce   math.HexOrDecimal64   `json:"nonce"`
	HasCode bool                  `json:"hasCode"`
}

// CallData represents contract-call body
type GetCodeResult struct {
	Code string `json:"code"`
}

type GetStorageResult struct {
	Value string `json:"value"`
}

type CallData struct {
	Value    *math.HexOrDecimal256 `json:"value"`
	Data     string                `json:"data"`
	Gas      uint64                `json:"gas"`
	GasPrice *math.HexOrDecimal256 `json:"gasPrice"`
	Caller   *thor.Address         `json:"caller"`
}

// CallResult is the result of a simulated call.
type CallResult struct {
	Data     string `json:"data"`
	GasUsed  uint64 `json:"gasUsed"`
	Reverted bool   `json:"reverted"`
	VMError  string `json:"vmError"`
	// Rejected is the reason when the probe tx is not admitted by the executor.
	Rejected string `json:"rejected,omitempty"`
}

func convertCallResult(res *contract.CallResult) *CallResult {
	out := &CallResult{
		Data: hexutil.Encode(res.Output),
	}
	switch res.Kind {
	case contract.CallSucceeded:
		out.GasUsed = res.Receipt.GasUsed
	case contract.CallFailed:
		out.GasUsed = res.Receipt.GasUsed
		out.Reverted = true
		if res.Err != nil {
			out.VMError = res.Err.Error()
		}
	case contract.CallRejected:
		out.Reverted = true
		out.Rejected = runtime.InvalidTxReason(res.Err)
		if res.Err != nil {
			out.VMError = res.Err.Error()
		}
	}
	return out
}
