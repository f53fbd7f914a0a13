// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transactions

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// RawTx a raw transaction
type RawTx struct {
	Raw string `json:"raw"`
}

func (rtx *RawTx) decode() (*tx.Transaction, error) {
	data, err := hexutil.Decode(rtx.Raw)
	if err != nil {
		return nil, err
	}
	var trx *tx.Transaction
	if err := rlp.DecodeBytes(data, &trx); err != nil {
		return nil, err
	}
	return trx, nil
}

// SendTxResult is the response of a sent tx.
type SendTxResult struct {
	ID *thor.Bytes32 `json:"id"`
}

// Transaction for json marshal
type Transaction struct {
	ID       thor.Bytes32          `json:"id"`
	Origin   thor.Address          `json:"origin"`
	Nonce    math.HexOrDecimal64   `json:"nonce"`
	GasPrice *math.HexOrDecimal256 `json:"gasPrice"`
	Gas      uint64                `json:"gas"`
	To       *thor.Address         `json:"to"`
	Value    *math.HexOrDecimal256 `json:"value"`
	Data     string                `json:"data"`
	Size     uint32                `json:"size"`
}

func convertTransaction(trx *tx.Transaction) (*Transaction, error) {
	origin, err := trx.Sender()
	if err != nil {
		return nil, errors.WithMessage(err, "sender")
	}
	return &Transaction{
		ID:       trx.ID(),
		Origin:   origin,
		Nonce:    math.HexOrDecimal64(trx.Nonce()),
		GasPrice: (*math.HexOrDecimal256)(trx.GasPrice()),
		Gas:      trx.Gas(),
		To:       trx.To(),
		Value:    (*math.HexOrDecimal256)(trx.Value()),
		Data:     hexutil.Encode(trx.Data()),
		Size:     uint32(trx.Size()),
	}, nil
}
