// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reasons of tx rejection, in the order they are checked.
const (
	ReasonBadSignature       = "bad signature"
	ReasonNonceMismatch      = "nonce mismatch"
	ReasonInsufficientFunds  = "insufficient funds"
	ReasonGasLimitExceeded   = "gas limit exceeded"
	ReasonIntrinsicGasTooLow = "intrinsic gas too low"
)

// InvalidTxError is returned when a tx fails validation. The tx is rejected,
// and nothing is recorded.
type InvalidTxError struct {
	Reason string
	Detail string
}

func (e *InvalidTxError) Error() string {
	if e.Detail == "" {
		return "invalid tx: " + e.Reason
	}
	return fmt.Sprintf("invalid tx: %s: %s", e.Reason, e.Detail)
}

func invalidTx(reason string, format string, args ...any) error {
	return &InvalidTxError{reason, fmt.Sprintf(format, args...)}
}

// IsInvalidTx returns whether the error is an InvalidTxError.
func IsInvalidTx(err error) bool {
	var e *InvalidTxError
	return errors.As(err, &e)
}

// InvalidTxReason returns the reason if err is an InvalidTxError, or empty string.
func InvalidTxReason(err error) string {
	var e *InvalidTxError
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
