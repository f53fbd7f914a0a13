// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math"
)

// GasLimit to support block gas limit validation and adjustment.
type GasLimit uint64

// IsValid returns if the receiver is valid according to parent gas limit.
func (gl GasLimit) IsValid(parentGasLimit uint64) bool {
	gasLimit := uint64(gl)
	if gasLimit < MinGasLimit {
		return false
	}
	var diff uint64
	if gasLimit > parentGasLimit {
		diff = gasLimit - parentGasLimit
	} else {
		diff = parentGasLimit - gasLimit
	}

	return diff <= parentGasLimit/GasLimitBoundDivisor
}

// Qualify moves the parent gas limit towards the receiver by at most one bound step,
// and returns the result.
func (gl GasLimit) Qualify(parentGasLimit uint64) uint64 {
	target := uint64(gl)
	if target == 0 || target == parentGasLimit {
		return parentGasLimit
	}
	maxDiff := parentGasLimit / GasLimitBoundDivisor
	if target > parentGasLimit {
		diff := min(target-parentGasLimit, maxDiff)
		if math.MaxUint64-diff < parentGasLimit {
			return math.MaxUint64
		}
		return parentGasLimit + diff
	}
	diff := min(parentGasLimit-target, maxDiff)
	if MinGasLimit+diff > parentGasLimit {
		// reach floor
		return MinGasLimit
	}
	return parentGasLimit - diff
}
