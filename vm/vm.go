// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vm defines the interface of the virtual machine driven by the runtime,
// and ships an engine running native contracts.
package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// Execution errors. They make the tx reverted, but don't reject it.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrNoContract               = errors.New("no contract bound to code")
	ErrInvalidInput             = errors.New("invalid input")
)

// Context is the block and tx context of an execution.
type Context struct {
	BlockNumber uint32
	Timestamp   uint64
	Coinbase    thor.Address
	GasLimit    uint64
	GasPrice    *big.Int
	Origin      thor.Address
	TxID        thor.Bytes32
}

// StateDB is the state accessed by the vm. *state.State implements it.
// Errors returned are fatal, since they are caused by failed storage access.
type StateDB interface {
	GetBalance(addr thor.Address) (*big.Int, error)
	SetBalance(addr thor.Address, balance *big.Int) error
	GetNonce(addr thor.Address) (uint64, error)
	GetCode(addr thor.Address) ([]byte, error)
	SetCode(addr thor.Address, code []byte) error
	GetCodeHash(addr thor.Address) (thor.Bytes32, error)
	GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error)
	SetStorage(addr thor.Address, key, value thor.Bytes32) error
	Exists(addr thor.Address) (bool, error)

	NewCheckpoint() int
	RevertTo(revision int)
}

// Output is the result of an execution.
type Output struct {
	Data            []byte
	LeftOverGas     uint64
	Logs            []*tx.Log
	ContractAddress *thor.Address
	// VMErr is the execution error. All changes made by the execution are reverted when it's set.
	VMErr error
}

// VM executes messages against the state.
// The returned error is fatal, and the state must be discarded.
type VM interface {
	// Call executes the contract at to, with value transferred from caller.
	Call(ctx *Context, st StateDB, caller, to thor.Address, data []byte, value *big.Int, gas uint64) (*Output, error)
	// Create deploys the code at the address derived from caller and nonce.
	Create(ctx *Context, st StateDB, caller thor.Address, nonce uint64, code []byte, value *big.Int, gas uint64) (*Output, error)
}

// CreateAddress computes the address of the contract created by caller with nonce.
func CreateAddress(caller thor.Address, nonce uint64) thor.Address {
	data, _ := rlp.EncodeToBytes([]any{caller, nonce})
	h := thor.Keccak256(data)
	return thor.BytesToAddress(h[12:])
}
