// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contract

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSenderMismatch is returned by Transact when the signed tx doesn't recover to the sender.
var ErrSenderMismatch = errors.New("sender mismatch")

func errInvalidParam(name string) error {
	return errors.Errorf("invalid %v", name)
}

// ConsistencyError reports that a block state changed during a call, or its history can't be
// reproduced. It's fatal, and must never be treated as a failed call.
type ConsistencyError struct {
	Msg string
	Err error
}

func (e *ConsistencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consistency violation: %v: %v", e.Msg, e.Err)
	}
	return "consistency violation: " + e.Msg
}

// Unwrap returns the underlying error.
func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// IsConsistencyError returns whether err is or wraps a *ConsistencyError.
func IsConsistencyError(err error) bool {
	var cErr *ConsistencyError
	return errors.As(err, &cErr)
}
