// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"
	"github.com/vechain/blockexec/thor"
)

// Codes of the builtin contracts. Deploying them creates an instance of the contract.
var (
	EchoCode    = []byte("native:echo")
	CounterCode = []byte("native:counter")
	StoreCode   = []byte("native:store")
	RevertCode  = []byte("native:revert")
)

var counterSlot = thor.Bytes32{}

// Echo returns the input, and logs it when value is attached.
var Echo = ContractFunc(func(env *Env, input []byte) ([]byte, error) {
	if env.value.Sign() > 0 {
		if err := env.Log([]thor.Bytes32{thor.BytesToBytes32(env.value.Bytes())}, input); err != nil {
			return nil, err
		}
	}
	return input, nil
})

// Counter increments the counter by the 32 bytes big-endian input, or by 1 if
// input is empty. It returns the new count. With input "get", it returns the count only.
var Counter = ContractFunc(func(env *Env, input []byte) ([]byte, error) {
	v, err := env.GetStorage(counterSlot)
	if err != nil {
		return nil, err
	}
	count := new(uint256.Int).SetBytes32(v[:])
	if string(input) == "get" {
		b := count.Bytes32()
		return b[:], nil
	}

	delta := uint256.NewInt(1)
	if len(input) > 0 {
		if len(input) > 32 {
			return nil, ErrInvalidInput
		}
		delta.SetBytes(input)
	}
	if _, overflow := count.AddOverflow(count, delta); overflow {
		return nil, ErrInvalidInput
	}
	b := count.Bytes32()
	if err := env.SetStorage(counterSlot, b); err != nil {
		return nil, err
	}
	return b[:], nil
})

// Store sets storage when input is 64 bytes of key and value, or gets the
// value when input is the 32 bytes key.
var Store = ContractFunc(func(env *Env, input []byte) ([]byte, error) {
	switch len(input) {
	case 32:
		v, err := env.GetStorage(thor.BytesToBytes32(input))
		if err != nil {
			return nil, err
		}
		return v[:], nil
	case 64:
		key, value := thor.BytesToBytes32(input[:32]), thor.BytesToBytes32(input[32:])
		if err := env.SetStorage(key, value); err != nil {
			return nil, err
		}
		return nil, env.Log([]thor.Bytes32{key}, value[:])
	default:
		return nil, ErrInvalidInput
	}
})

// Revert always reverts, returning the input as revert reason.
var Revert = ContractFunc(func(_ *Env, input []byte) ([]byte, error) {
	return input, ErrExecutionReverted
})

// NewBuiltin creates a native vm with all builtin contracts bound to their codes.
func NewBuiltin() *Native {
	return NewNative().
		BindCode(EchoCode, Echo).
		BindCode(CounterCode, Counter).
		BindCode(StoreCode, Store).
		BindCode(RevertCode, Revert)
}
