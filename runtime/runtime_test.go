// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
	"github.com/vechain/blockexec/vm"
)

var (
	sender   = genesis.DevAccounts()[1]
	coinbase = thor.BytesToAddress([]byte("coinbase"))
	bob      = thor.BytesToAddress([]byte("bob"))
	price    = thor.DefaultGasPrice
	funds    = new(big.Int).Mul(big.NewInt(100), thor.Ether)
)

func newGenesis(t *testing.T, gasLimit uint64) *genesis.Genesis {
	gen, err := genesis.New("test", new(genesis.Builder).
		GasLimit(gasLimit).
		Timestamp(1526400000).
		Coinbase(coinbase).
		State(func(st *state.State) error {
			return st.SetBalance(sender.Address, funds)
		}))
	require.NoError(t, err)
	return gen
}

func newBlockState(t *testing.T) *blockstate.BlockState {
	bs, err := blockstate.Genesis(muxdb.NewMem(), newGenesis(t, thor.InitialGasLimit))
	require.NoError(t, err)
	return bs
}

func newTx(nonce uint64, to *thor.Address, value *big.Int, gas uint64, data []byte) *tx.Transaction {
	return tx.MustSign(tx.NewBuilder().
		Nonce(nonce).
		GasPrice(price).
		Gas(gas).
		To(to).
		Value(value).
		Data(data).
		Build(), sender.Signer)
}

func balanceOf(t *testing.T, bs *blockstate.BlockState, addr thor.Address) *big.Int {
	bal, err := bs.State().GetBalance(addr)
	require.NoError(t, err)
	return bal
}

func fee(gas uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), price)
}

func TestApplyTransfer(t *testing.T) {
	bs := newBlockState(t)
	exec := runtime.New(vm.NewBuiltin())

	trx := newTx(0, &bob, big.NewInt(10), 25000, nil)
	origin, err := exec.Validate(bs, trx)
	require.NoError(t, err)
	assert.Equal(t, sender.Address, origin)

	res, err := exec.ApplyTransaction(bs, trx)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, thor.TxGas, res.Receipt.GasUsed)
	assert.Equal(t, fee(thor.TxGas), res.Receipt.Paid)
	assert.False(t, res.Receipt.Reverted)

	nonce, _ := bs.GetNonce(sender.Address)
	assert.Equal(t, uint64(1), nonce)
	assert.Equal(t, big.NewInt(10), balanceOf(t, bs, bob))
	assert.Equal(t, fee(thor.TxGas), balanceOf(t, bs, coinbase))

	want := new(big.Int).Sub(funds, big.NewInt(10))
	want.Sub(want, fee(thor.TxGas))
	assert.Equal(t, want, balanceOf(t, bs, sender.Address))

	assert.Equal(t, thor.TxGas, bs.GasUsed())
	require.Len(t, bs.Transactions(), 1)
	assert.Equal(t, trx.ID(), bs.Transactions()[0].ID())
	assert.Equal(t, bs.Transactions().RootHash(), bs.TxsRoot())
	assert.Equal(t, bs.Receipts().RootHash(), bs.ReceiptsRoot())
	assert.False(t, bs.State().Dirty())
}

func TestRejections(t *testing.T) {
	poor := cry.MustParseSigner("2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2")

	tests := []struct {
		name   string
		tx     *tx.Transaction
		reason string
	}{
		{
			"bad signature",
			tx.NewBuilder().Gas(25000).To(&bob).Build().WithSignature(make([]byte, 65)),
			runtime.ReasonBadSignature,
		},
		{
			"stamped sender on durable state",
			tx.NewBuilder().GasPrice(price).Gas(25000).To(&bob).Build().WithSender(sender.Address),
			runtime.ReasonBadSignature,
		},
		{
			"nonce mismatch",
			newTx(1, &bob, nil, 25000, nil),
			runtime.ReasonNonceMismatch,
		},
		{
			"nonce checked before funds",
			newTx(1, &bob, new(big.Int).Mul(funds, big.NewInt(2)), 25000, nil),
			runtime.ReasonNonceMismatch,
		},
		{
			"insufficient funds",
			tx.MustSign(tx.NewBuilder().GasPrice(price).Gas(25000).To(&bob).Build(), poor),
			runtime.ReasonInsufficientFunds,
		},
		{
			"value over balance",
			newTx(0, &bob, funds, 25000, nil),
			runtime.ReasonInsufficientFunds,
		},
		{
			"gas limit exceeded",
			newTx(0, &bob, nil, thor.InitialGasLimit+1, nil),
			runtime.ReasonGasLimitExceeded,
		},
		{
			"intrinsic gas too low",
			newTx(0, &bob, nil, thor.TxGas-1, nil),
			runtime.ReasonIntrinsicGasTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := newBlockState(t)
			exec := runtime.New(vm.NewBuiltin())
			before := bs.Snapshot()

			_, err := exec.Validate(bs, tt.tx)
			assert.True(t, runtime.IsInvalidTx(err))
			assert.Equal(t, tt.reason, runtime.InvalidTxReason(err))

			res, err := exec.ApplyTransaction(bs, tt.tx)
			assert.Nil(t, res)
			assert.True(t, runtime.IsInvalidTx(err), "%v", err)
			assert.Equal(t, tt.reason, runtime.InvalidTxReason(err))

			assert.Equal(t, before, bs.Snapshot())
			assert.False(t, bs.State().Dirty())
			assert.Empty(t, bs.Transactions())
		})
	}
}

func TestStampedSenderOnFork(t *testing.T) {
	fork, err := muxdb.NewMem().Fork()
	require.NoError(t, err)
	bs, err := blockstate.Genesis(fork, newGenesis(t, thor.InitialGasLimit))
	require.NoError(t, err)

	trx := tx.NewBuilder().GasPrice(price).Gas(25000).To(&bob).Value(big.NewInt(1)).Build().WithSender(sender.Address)
	res, err := runtime.New(vm.NewBuiltin()).ApplyTransaction(bs, trx)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, big.NewInt(1), balanceOf(t, bs, bob))
}

func TestExecutionFailure(t *testing.T) {
	bs := newBlockState(t)
	exec := runtime.New(vm.NewBuiltin())

	res, err := exec.ApplyTransaction(bs, newTx(0, nil, nil, 100000, vm.RevertCode))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.NotNil(t, res.Receipt.ContractAddress)
	reverter := *res.Receipt.ContractAddress
	assert.Equal(t, vm.CreateAddress(sender.Address, 0), reverter)

	balance := balanceOf(t, bs, sender.Address)
	res, err = exec.ApplyTransaction(bs, newTx(1, &reverter, big.NewInt(5), 100000, []byte("oops")))
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, runtime.Failed, res.Kind)
	assert.Equal(t, vm.ErrExecutionReverted, res.VMErr)
	assert.True(t, res.Receipt.Reverted)
	assert.Equal(t, []byte("oops"), res.Output)
	assert.Less(t, res.Receipt.GasUsed, uint64(100000))

	// only gas and nonce charged
	nonce, _ := bs.GetNonce(sender.Address)
	assert.Equal(t, uint64(2), nonce)
	assert.Equal(t, new(big.Int).Sub(balance, res.Receipt.Paid), balanceOf(t, bs, sender.Address))
	assert.Equal(t, 0, balanceOf(t, bs, reverter).Sign())

	// recorded anyway
	assert.Len(t, bs.Transactions(), 2)
	assert.Len(t, bs.Receipts(), 2)

	// out of gas consumes all gas
	counterTx := newTx(2, nil, nil, 100000, vm.CounterCode)
	res, err = exec.ApplyTransaction(bs, counterTx)
	require.NoError(t, err)
	counter := *res.Receipt.ContractAddress

	res, err = exec.ApplyTransaction(bs, newTx(3, &counter, nil, 21100, nil))
	require.NoError(t, err)
	assert.Equal(t, vm.ErrOutOfGas, res.VMErr)
	assert.Equal(t, uint64(21100), res.Receipt.GasUsed)
	v, _ := bs.State().GetStorage(counter, thor.Bytes32{})
	assert.True(t, v.IsZero())
}

func TestNonceMonotonicity(t *testing.T) {
	bs := newBlockState(t)
	exec := runtime.New(vm.NewBuiltin())

	const n = 5
	for i := range uint64(n) {
		_, err := exec.ApplyTransaction(bs, newTx(i, &bob, big.NewInt(1), 21000, nil))
		require.NoError(t, err)
	}
	nonce, _ := bs.GetNonce(sender.Address)
	assert.Equal(t, uint64(n), nonce)

	// out of order, every tx after the first mismatch is rejected
	for _, i := range []uint64{n + 1, n + 2, n + 3} {
		_, err := exec.ApplyTransaction(bs, newTx(i, &bob, big.NewInt(1), 21000, nil))
		assert.Equal(t, runtime.ReasonNonceMismatch, runtime.InvalidTxReason(err))
	}
	nonce, _ = bs.GetNonce(sender.Address)
	assert.Equal(t, uint64(n), nonce)
	assert.Len(t, bs.Transactions(), n)
}

func TestGasAccounting(t *testing.T) {
	bs, err := blockstate.Genesis(muxdb.NewMem(), newGenesis(t, thor.MinGasLimit))
	require.NoError(t, err)
	exec := runtime.New(vm.NewBuiltin())

	_, err = exec.ApplyTransaction(bs, newTx(0, &bob, nil, thor.MinGasLimit+1, nil))
	assert.Equal(t, runtime.ReasonGasLimitExceeded, runtime.InvalidTxReason(err))

	_, err = exec.ApplyTransaction(bs, newTx(0, &bob, nil, thor.MinGasLimit, nil))
	require.NoError(t, err)
	assert.Equal(t, thor.TxGas, bs.GasUsed())

	// startgas, not gas used, is checked against the remaining limit
	_, err = exec.ApplyTransaction(bs, newTx(1, &bob, nil, thor.MinGasLimit, nil))
	assert.Equal(t, runtime.ReasonGasLimitExceeded, runtime.InvalidTxReason(err))

	for i := uint64(1); ; i++ {
		_, err := exec.ApplyTransaction(bs, newTx(i, &bob, nil, 100000, nil))
		if err != nil {
			assert.Equal(t, runtime.ReasonGasLimitExceeded, runtime.InvalidTxReason(err))
			break
		}
		assert.LessOrEqual(t, bs.GasUsed(), bs.GasLimit())
	}
	assert.Greater(t, bs.GasUsed()+100000, bs.GasLimit())
}

func TestReplayDeterminism(t *testing.T) {
	base := newBlockState(t)
	exec := runtime.New(vm.NewBuiltin())

	txs := tx.Transactions{
		newTx(0, nil, nil, 100000, vm.StoreCode),
		newTx(1, &bob, big.NewInt(100), 21000, nil),
	}
	store := vm.CreateAddress(sender.Address, 0)
	key := thor.BytesToBytes32([]byte("k"))
	txs = append(txs, newTx(2, &store, nil, 100000, append(key.Bytes(), thor.BytesToBytes32([]byte("v")).Bytes()...)))

	run := func() blockstate.Snapshot {
		fork, err := base.DB().Fork()
		require.NoError(t, err)
		bs, err := base.Derive(fork)
		require.NoError(t, err)
		for _, trx := range txs {
			res, err := exec.ApplyTransaction(bs, trx)
			require.NoError(t, err)
			require.True(t, res.Succeeded())
		}
		return bs.Snapshot()
	}
	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, uint32(3), first.TxCount)

	// base is untouched
	assert.Empty(t, base.Transactions())
}

func TestSealed(t *testing.T) {
	bs := newBlockState(t)
	exec := runtime.New(vm.NewBuiltin())

	_, err := exec.ApplyTransaction(bs, newTx(0, &bob, nil, 21000, nil))
	require.NoError(t, err)
	_, _, err = bs.Seal()
	require.NoError(t, err)

	_, err = exec.ApplyTransaction(bs, newTx(1, &bob, nil, 21000, nil))
	assert.Equal(t, blockstate.ErrSealed, err)
	_, err = exec.Validate(bs, newTx(1, &bob, nil, 21000, nil))
	assert.Equal(t, blockstate.ErrSealed, err)
}
