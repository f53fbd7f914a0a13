// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// ResolvedTransaction is a tx validated against a block state.
type ResolvedTransaction struct {
	tx           *tx.Transaction
	Origin       thor.Address
	IntrinsicGas uint64
}

// ResolveTransaction validates the tx against the block state. Checks run in order, and
// the first failure is returned as *InvalidTxError. Other errors are fatal.
func ResolveTransaction(bs *blockstate.BlockState, trx *tx.Transaction) (*ResolvedTransaction, error) {
	origin, err := trx.Sender()
	if err != nil {
		return nil, invalidTx(ReasonBadSignature, "%v", err)
	}
	// a stamped sender doesn't survive encoding, so it's only allowed on ephemeral states
	if trx.IsStamped() && !bs.DB().IsForked() {
		return nil, invalidTx(ReasonBadSignature, "stamped sender on a durable state")
	}

	st := bs.State()
	nonce, err := st.GetNonce(origin)
	if err != nil {
		return nil, err
	}
	if nonce != trx.Nonce() {
		return nil, invalidTx(ReasonNonceMismatch, "want %v, got %v", nonce, trx.Nonce())
	}

	cost := trx.Cost()
	if cost.Cmp(math.MaxBig256) > 0 {
		return nil, invalidTx(ReasonInsufficientFunds, "cost overflow")
	}
	balance, err := st.GetBalance(origin)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(cost) < 0 {
		return nil, invalidTx(ReasonInsufficientFunds, "balance %v, cost %v", balance, cost)
	}

	if left := bs.GasLimit() - bs.GasUsed(); trx.Gas() > left {
		return nil, invalidTx(ReasonGasLimitExceeded, "gas %v, block gas left %v", trx.Gas(), left)
	}

	intrinsicGas, err := trx.IntrinsicGas()
	if err != nil {
		return nil, invalidTx(ReasonIntrinsicGasTooLow, "%v", err)
	}
	if trx.Gas() < intrinsicGas {
		return nil, invalidTx(ReasonIntrinsicGasTooLow, "gas %v, intrinsic gas %v", trx.Gas(), intrinsicGas)
	}

	return &ResolvedTransaction{
		tx:           trx,
		Origin:       origin,
		IntrinsicGas: intrinsicGas,
	}, nil
}

// BuyGas charges gas upfront, and returns the func to refund the left gas.
func (r *ResolvedTransaction) BuyGas(bs *blockstate.BlockState) (returnGas func(leftOverGas uint64) error, err error) {
	st := bs.State()
	prepaid := new(big.Int).Mul(new(big.Int).SetUint64(r.tx.Gas()), r.tx.GasPrice())
	balance, err := st.GetBalance(r.Origin)
	if err != nil {
		return nil, err
	}
	if err := st.SetBalance(r.Origin, new(big.Int).Sub(balance, prepaid)); err != nil {
		return nil, err
	}

	return func(leftOverGas uint64) error {
		if leftOverGas == 0 {
			return nil
		}
		refund := new(big.Int).Mul(new(big.Int).SetUint64(leftOverGas), r.tx.GasPrice())
		balance, err := st.GetBalance(r.Origin)
		if err != nil {
			return err
		}
		return st.SetBalance(r.Origin, new(big.Int).Add(balance, refund))
	}, nil
}
