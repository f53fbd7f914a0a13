// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"math/big"

	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/thor"
)

var logger = log.WithContext("pkg", "vm")

// Native is a VM running contracts implemented in go.
//
// A contract is bound either to an address, or to a code. Deploying a code
// creates an account holding the code, and calls to the account run the
// contract bound to the code. The deployed code is stored as is, there's no
// init code to run.
type Native struct {
	byAddress map[thor.Address]Contract
	byCode    map[thor.Bytes32]Contract
}

var _ VM = (*Native)(nil)

// NewNative creates a native vm without any contract bound.
func NewNative() *Native {
	return &Native{
		byAddress: make(map[thor.Address]Contract),
		byCode:    make(map[thor.Bytes32]Contract),
	}
}

// Bind binds the contract to the address.
func (n *Native) Bind(addr thor.Address, c Contract) *Native {
	n.byAddress[addr] = c
	return n
}

// BindCode binds the contract to the code.
func (n *Native) BindCode(code []byte, c Contract) *Native {
	n.byCode[thor.Keccak256(code)] = c
	return n
}

// resolve returns the contract at addr. A nil contract with nil error means
// the account has no code, which is a plain transfer.
func (n *Native) resolve(st StateDB, addr thor.Address) (Contract, error, error) {
	if c, ok := n.byAddress[addr]; ok {
		return c, nil, nil
	}
	codeHash, err := st.GetCodeHash(addr)
	if err != nil {
		return nil, nil, err
	}
	if codeHash.IsZero() {
		return nil, nil, nil
	}
	if c, ok := n.byCode[codeHash]; ok {
		return c, nil, nil
	}
	return nil, ErrNoContract, nil
}

// Call implements VM.
func (n *Native) Call(ctx *Context, st StateDB, caller, to thor.Address, data []byte, value *big.Int, gas uint64) (*Output, error) {
	checkpoint := st.NewCheckpoint()
	out, err := n.call(ctx, st, caller, to, data, value, gas)
	if err != nil {
		return nil, err
	}
	n.finalize(st, checkpoint, out)
	return out, nil
}

func (n *Native) call(ctx *Context, st StateDB, caller, to thor.Address, data []byte, value *big.Int, gas uint64) (*Output, error) {
	if vmErr, err := transfer(st, caller, to, value); err != nil {
		return nil, err
	} else if vmErr != nil {
		return &Output{VMErr: vmErr}, nil
	}

	contract, vmErr, err := n.resolve(st, to)
	if err != nil {
		return nil, err
	}
	if vmErr != nil {
		return &Output{VMErr: vmErr}, nil
	}
	if contract == nil {
		return &Output{LeftOverGas: gas}, nil
	}

	env := &Env{
		ctx:     ctx,
		st:      st,
		caller:  caller,
		address: to,
		value:   value,
		gas:     gas,
	}
	if err := env.UseGas(InputWordGas * toWordSize(uint64(len(data)))); err != nil {
		return &Output{VMErr: err}, nil
	}
	ret, runErr := contract.Run(env, data)
	if env.fatal != nil {
		return nil, env.fatal
	}
	return &Output{
		Data:        ret,
		LeftOverGas: env.gas,
		Logs:        env.logs,
		VMErr:       runErr,
	}, nil
}

// Create implements VM.
func (n *Native) Create(ctx *Context, st StateDB, caller thor.Address, nonce uint64, code []byte, value *big.Int, gas uint64) (*Output, error) {
	checkpoint := st.NewCheckpoint()
	out, err := n.create(st, caller, nonce, code, value, gas)
	if err != nil {
		return nil, err
	}
	n.finalize(st, checkpoint, out)
	return out, nil
}

func (n *Native) create(st StateDB, caller thor.Address, nonce uint64, code []byte, value *big.Int, gas uint64) (*Output, error) {
	addr := CreateAddress(caller, nonce)

	codeHash, err := st.GetCodeHash(addr)
	if err != nil {
		return nil, err
	}
	addrNonce, err := st.GetNonce(addr)
	if err != nil {
		return nil, err
	}
	if addrNonce != 0 || !codeHash.IsZero() {
		return &Output{VMErr: ErrContractAddressCollision}, nil
	}

	if vmErr, err := transfer(st, caller, addr, value); err != nil {
		return nil, err
	} else if vmErr != nil {
		return &Output{VMErr: vmErr}, nil
	}

	if len(code) > 0 {
		if _, ok := n.byCode[thor.Keccak256(code)]; !ok {
			return &Output{VMErr: ErrNoContract}, nil
		}
	}
	storeGas := CodeByteGas * uint64(len(code))
	if gas < storeGas {
		return &Output{VMErr: ErrCodeStoreOutOfGas}, nil
	}
	if err := st.SetCode(addr, code); err != nil {
		return nil, err
	}
	return &Output{
		Data:            code,
		LeftOverGas:     gas - storeGas,
		ContractAddress: &addr,
	}, nil
}

// finalize reverts all changes if the execution failed.
func (n *Native) finalize(st StateDB, checkpoint int, out *Output) {
	if out.VMErr == nil {
		return
	}
	st.RevertTo(checkpoint)
	out.Logs = nil
	out.ContractAddress = nil
	if out.VMErr != ErrExecutionReverted {
		// only revert refunds the left gas
		out.LeftOverGas = 0
		out.Data = nil
	}
	logger.Trace("execution failed", "err", out.VMErr)
}

// transfer moves value from sender to recipient. It returns the vm error for insufficient balance.
func transfer(st StateDB, sender, recipient thor.Address, value *big.Int) (vmErr error, err error) {
	if value.Sign() == 0 {
		return nil, nil
	}
	bal, err := st.GetBalance(sender)
	if err != nil {
		return nil, err
	}
	if bal.Cmp(value) < 0 {
		return ErrInsufficientBalance, nil
	}
	if err := st.SetBalance(sender, new(big.Int).Sub(bal, value)); err != nil {
		return nil, err
	}
	bal, err = st.GetBalance(recipient)
	if err != nil {
		return nil, err
	}
	return nil, st.SetBalance(recipient, new(big.Int).Add(bal, value))
}

func toWordSize(size uint64) uint64 {
	return (size + 31) / 32
}
