// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/vechain/blockexec/thor"
)

// Receipt represents the results of a transaction.
type Receipt struct {
	// whether the execution was reverted
	Reverted bool
	// gas used by this tx
	GasUsed uint64
	// the amount paid for the used gas
	Paid *big.Int
	// returned bytes of the execution
	Output []byte
	// the address of the created contract, if any
	ContractAddress *thor.Address `rlp:"nil"`
	// logs produced
	Logs []*Log
}

// Log represents a contract log event.
type Log struct {
	// address of the contract that generated the event
	Address thor.Address
	// list of topics provided by the contract.
	Topics []thor.Bytes32
	// supplied by the contract, usually ABI-encoded
	Data []byte
}
