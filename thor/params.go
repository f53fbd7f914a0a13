// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Constants of block chain.
const (
	BlockInterval uint64 = 10 // time interval between two consecutive blocks.

	TxGas                 uint64 = params.TxGas                 // intrinsic gas of a plain tx.
	TxGasContractCreation uint64 = params.TxGas                 // frontier rule, creation is charged as a plain tx.
	TxDataZeroGas         uint64 = params.TxDataZeroGas
	TxDataNonZeroGas      uint64 = params.TxDataNonZeroGasEIP2028

	MinGasLimit          uint64 = 1000 * 1000
	InitialGasLimit      uint64 = 10 * 1000 * 1000 // InitialGasLimit gas limit value int genesis block.
	GasLimitBoundDivisor uint64 = 1024             // from ethereum

	MaxTxSize = 64 * 1024 // max size of tx allowed
)

// Denominations.
var (
	Wei     = big.NewInt(1)
	Shannon = big.NewInt(params.GWei)
	Ether   = big.NewInt(params.Ether)
)

// Defaults used when building transactions and calls.
var (
	DefaultGasPrice        = new(big.Int).Mul(big.NewInt(60), Shannon)
	DefaultStartGas uint64 = 25000
)
