// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// Gas costs of env operations.
const (
	SloadGas     = params.SloadGasFrontier
	SstoreGas    = params.SstoreSetGas
	LogGas       = params.LogGas
	LogTopicGas  = params.LogTopicGas
	LogDataGas   = params.LogDataGas
	CodeByteGas  = params.CreateDataGas
	InputWordGas = params.CopyGas
)

// Contract is a contract implemented in go.
type Contract interface {
	Run(env *Env, input []byte) ([]byte, error)
}

// ContractFunc is the func adaptor of Contract.
type ContractFunc func(env *Env, input []byte) ([]byte, error)

// Run implements Contract.
func (f ContractFunc) Run(env *Env, input []byte) ([]byte, error) {
	return f(env, input)
}

// Env is the environment seen by a running contract.
type Env struct {
	ctx     *Context
	st      StateDB
	caller  thor.Address
	address thor.Address
	value   *big.Int
	gas     uint64
	logs    []*tx.Log
	fatal   error
}

// Context returns the block and tx context.
func (env *Env) Context() *Context { return env.ctx }

// Caller returns the address of the caller.
func (env *Env) Caller() thor.Address { return env.caller }

// Address returns the address of the running contract.
func (env *Env) Address() thor.Address { return env.address }

// Value returns the value transferred along with the call.
func (env *Env) Value() *big.Int { return new(big.Int).Set(env.value) }

// Gas returns gas left.
func (env *Env) Gas() uint64 { return env.gas }

// UseGas consumes gas. It returns ErrOutOfGas if gas is not enough, and all left gas is consumed.
func (env *Env) UseGas(gas uint64) error {
	if env.gas < gas {
		env.gas = 0
		return ErrOutOfGas
	}
	env.gas -= gas
	return nil
}

// GetStorage reads a storage slot of the running contract.
func (env *Env) GetStorage(key thor.Bytes32) (thor.Bytes32, error) {
	if err := env.UseGas(SloadGas); err != nil {
		return thor.Bytes32{}, err
	}
	v, err := env.st.GetStorage(env.address, key)
	if err != nil {
		env.fatal = err
	}
	return v, err
}

// SetStorage writes a storage slot of the running contract.
func (env *Env) SetStorage(key, value thor.Bytes32) error {
	if err := env.UseGas(SstoreGas); err != nil {
		return err
	}
	if err := env.st.SetStorage(env.address, key, value); err != nil {
		env.fatal = err
		return err
	}
	return nil
}

// GetBalance returns the balance of addr.
func (env *Env) GetBalance(addr thor.Address) (*big.Int, error) {
	if err := env.UseGas(SloadGas); err != nil {
		return nil, err
	}
	b, err := env.st.GetBalance(addr)
	if err != nil {
		env.fatal = err
	}
	return b, err
}

// Log emits a log.
func (env *Env) Log(topics []thor.Bytes32, data []byte) error {
	gas := LogGas + LogTopicGas*uint64(len(topics)) + LogDataGas*uint64(len(data))
	if err := env.UseGas(gas); err != nil {
		return err
	}
	env.logs = append(env.logs, &tx.Log{
		Address: env.address,
		Topics:  append([]thor.Bytes32(nil), topics...),
		Data:    append([]byte(nil), data...),
	})
	return nil
}
