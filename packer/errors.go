// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import (
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/runtime"
)

var (
	errGasLimitReached   = errors.New("gas limit reached")
	errTxNotAdoptableNow = errors.New("tx not adoptable now")
	errKnownTx           = errors.New("known tx")
)

// IsGasLimitReached block if full of txs.
func IsGasLimitReached(err error) bool {
	return errors.Is(err, errGasLimitReached)
}

// IsTxNotAdoptableNow tx can not be adopted now.
func IsTxNotAdoptableNow(err error) bool {
	return errors.Is(err, errTxNotAdoptableNow)
}

// IsKnownTx tx is already adopted.
func IsKnownTx(err error) bool {
	return errors.Is(err, errKnownTx)
}

// IsBadTx not a valid tx.
func IsBadTx(err error) bool {
	return errors.As(err, &badTxError{})
}

type badTxError struct {
	cause error
}

func (e badTxError) Error() string {
	return "bad tx: " + e.cause.Error()
}

func (e badTxError) Unwrap() error {
	return e.cause
}

// rejected by the executor, but may be valid on a later block.
func isTemporary(err error) bool {
	return runtime.InvalidTxReason(err) == runtime.ReasonGasLimitExceeded
}
