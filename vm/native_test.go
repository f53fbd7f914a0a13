// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/vm"
)

var (
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func newState(t *testing.T) *state.State {
	st, err := state.New(muxdb.NewMem(), thor.Bytes32{})
	require.NoError(t, err)
	require.NoError(t, st.SetBalance(alice, big.NewInt(1000)))
	return st
}

func deploy(t *testing.T, machine vm.VM, st *state.State, code []byte) thor.Address {
	out, err := machine.Create(&vm.Context{}, st, alice, 0, code, &big.Int{}, 1_000_000)
	require.NoError(t, err)
	require.NoError(t, out.VMErr)
	require.NotNil(t, out.ContractAddress)
	assert.Equal(t, vm.CreateAddress(alice, 0), *out.ContractAddress)
	return *out.ContractAddress
}

func TestTransfer(t *testing.T) {
	st := newState(t)
	machine := vm.NewBuiltin()

	out, err := machine.Call(&vm.Context{}, st, alice, bob, nil, big.NewInt(100), 10)
	require.NoError(t, err)
	assert.NoError(t, out.VMErr)
	assert.Equal(t, uint64(10), out.LeftOverGas)

	bal, _ := st.GetBalance(alice)
	assert.Equal(t, big.NewInt(900), bal)
	bal, _ = st.GetBalance(bob)
	assert.Equal(t, big.NewInt(100), bal)

	out, err = machine.Call(&vm.Context{}, st, bob, alice, nil, big.NewInt(101), 10)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrInsufficientBalance, out.VMErr)
	assert.Equal(t, uint64(0), out.LeftOverGas)
	bal, _ = st.GetBalance(bob)
	assert.Equal(t, big.NewInt(100), bal)
}

func TestCounter(t *testing.T) {
	st := newState(t)
	machine := vm.NewBuiltin()
	counter := deploy(t, machine, st, vm.CounterCode)

	code, _ := st.GetCode(counter)
	assert.Equal(t, vm.CounterCode, code)

	for i := 1; i <= 3; i++ {
		out, err := machine.Call(&vm.Context{}, st, alice, counter, nil, &big.Int{}, 100_000)
		require.NoError(t, err)
		require.NoError(t, out.VMErr)
		assert.Equal(t, big.NewInt(int64(i)), new(big.Int).SetBytes(out.Data))
		assert.Equal(t, uint64(100_000-vm.SloadGas-vm.SstoreGas), out.LeftOverGas)
	}

	// out of gas reverts the increment
	out, err := machine.Call(&vm.Context{}, st, alice, counter, nil, &big.Int{}, vm.SloadGas+1)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrOutOfGas, out.VMErr)
	assert.Equal(t, uint64(0), out.LeftOverGas)

	out, err = machine.Call(&vm.Context{}, st, alice, counter, []byte("get"), &big.Int{}, 100_000)
	require.NoError(t, err)
	require.NoError(t, out.VMErr)
	assert.Equal(t, big.NewInt(3), new(big.Int).SetBytes(out.Data))
}

func TestRevert(t *testing.T) {
	st := newState(t)
	machine := vm.NewBuiltin()
	reverter := deploy(t, machine, st, vm.RevertCode)

	out, err := machine.Call(&vm.Context{}, st, alice, reverter, []byte("reason"), big.NewInt(5), 1000)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrExecutionReverted, out.VMErr)
	assert.Equal(t, []byte("reason"), out.Data)
	assert.Equal(t, uint64(1000-vm.InputWordGas), out.LeftOverGas)

	// value transfer reverted as well
	bal, _ := st.GetBalance(alice)
	assert.Equal(t, big.NewInt(1000), bal)
}

func TestStoreAndLogs(t *testing.T) {
	st := newState(t)
	machine := vm.NewBuiltin()
	store := deploy(t, machine, st, vm.StoreCode)

	key := thor.BytesToBytes32([]byte("key"))
	value := thor.BytesToBytes32([]byte("value"))
	out, err := machine.Call(&vm.Context{}, st, alice, store, append(key.Bytes(), value.Bytes()...), &big.Int{}, 100_000)
	require.NoError(t, err)
	require.NoError(t, out.VMErr)
	require.Len(t, out.Logs, 1)
	assert.Equal(t, store, out.Logs[0].Address)
	assert.Equal(t, []thor.Bytes32{key}, out.Logs[0].Topics)

	v, _ := st.GetStorage(store, key)
	assert.Equal(t, value, v)

	out, err = machine.Call(&vm.Context{}, st, alice, store, key.Bytes(), &big.Int{}, 100_000)
	require.NoError(t, err)
	assert.Equal(t, value.Bytes(), out.Data)

	out, err = machine.Call(&vm.Context{}, st, alice, store, []byte{1}, &big.Int{}, 100_000)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrInvalidInput, out.VMErr)
}

func TestCreateErrors(t *testing.T) {
	st := newState(t)
	machine := vm.NewBuiltin()

	out, err := machine.Create(&vm.Context{}, st, alice, 0, []byte("unknown code"), &big.Int{}, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrNoContract, out.VMErr)

	out, err = machine.Create(&vm.Context{}, st, alice, 0, vm.EchoCode, &big.Int{}, 10)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrCodeStoreOutOfGas, out.VMErr)
	assert.Nil(t, out.ContractAddress)

	deploy(t, machine, st, vm.EchoCode)
	out, err = machine.Create(&vm.Context{}, st, alice, 0, vm.EchoCode, &big.Int{}, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, vm.ErrContractAddressCollision, out.VMErr)
}

func TestBindAddress(t *testing.T) {
	st := newState(t)
	addr := thor.BytesToAddress([]byte("precompiled"))
	machine := vm.NewNative().Bind(addr, vm.Echo)

	out, err := machine.Call(&vm.Context{}, st, alice, addr, []byte("hello"), &big.Int{}, 1000)
	require.NoError(t, err)
	require.NoError(t, out.VMErr)
	assert.Equal(t, []byte("hello"), out.Data)
}
