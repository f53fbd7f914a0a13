// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package blocks

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

type JSONBlockSummary struct {
	Number       uint32       `json:"number"`
	ID           thor.Bytes32 `json:"id"`
	Size         uint32       `json:"size"`
	ParentID     thor.Bytes32 `json:"parentID"`
	Timestamp    uint64       `json:"timestamp"`
	GasLimit     uint64       `json:"gasLimit"`
	Beneficiary  thor.Address `json:"beneficiary"`
	GasUsed      uint64       `json:"gasUsed"`
	TxsRoot      thor.Bytes32 `json:"txsRoot"`
	StateRoot    thor.Bytes32 `json:"stateRoot"`
	ReceiptsRoot thor.Bytes32 `json:"receiptsRoot"`
	IsTrunk      bool         `json:"isTrunk"`
}

type JSONCollapsedBlock struct {
	*JSONBlockSummary
	Transactions []thor.Bytes32 `json:"transactions"`
}

type JSONEvent struct {
	Address thor.Address   `json:"address"`
	Topics  []thor.Bytes32 `json:"topics"`
	Data    string         `json:"data"`
}

type JSONEmbeddedTx struct {
	ID       thor.Bytes32          `json:"id"`
	Origin   thor.Address          `json:"origin"`
	Nonce    math.HexOrDecimal64   `json:"nonce"`
	GasPrice *math.HexOrDecimal256 `json:"gasPrice"`
	Gas      uint64                `json:"gas"`
	To       *thor.Address         `json:"to"`
	Value    *math.HexOrDecimal256 `json:"value"`
	Data     string                `json:"data"`
	Size     uint32                `json:"size"`

	// receipt part
	GasUsed         uint64                `json:"gasUsed"`
	Paid            *math.HexOrDecimal256 `json:"paid"`
	Reverted        bool                  `json:"reverted"`
	Output          string                `json:"output"`
	ContractAddress *thor.Address         `json:"contractAddress"`
	Events          []*JSONEvent          `json:"events"`
}

type JSONExpandedBlock struct {
	*JSONBlockSummary
	Transactions []*JSONEmbeddedTx `json:"transactions"`
}

func buildJSONBlockSummary(summary *chain.BlockSummary, isTrunk bool) *JSONBlockSummary {
	header := summary.Header
	return &JSONBlockSummary{
		Number:       header.Number(),
		ID:           header.ID(),
		ParentID:     header.ParentID(),
		Timestamp:    header.Timestamp(),
		GasLimit:     header.GasLimit(),
		Beneficiary:  header.Beneficiary(),
		GasUsed:      header.GasUsed(),
		TxsRoot:      header.TxsRoot(),
		StateRoot:    header.StateRoot(),
		ReceiptsRoot: header.ReceiptsRoot(),
		Size:         uint32(summary.Size),
		IsTrunk:      isTrunk,
	}
}

func buildJSONEmbeddedTxs(txs tx.Transactions, receipts tx.Receipts) []*JSONEmbeddedTx {
	jTxs := make([]*JSONEmbeddedTx, 0, len(txs))
	for i, trx := range txs {
		origin, _ := trx.Sender()
		receipt := receipts[i]

		events := make([]*JSONEvent, 0, len(receipt.Logs))
		for _, l := range receipt.Logs {
			events = append(events, &JSONEvent{
				Address: l.Address,
				Topics:  l.Topics,
				Data:    hexutil.Encode(l.Data),
			})
		}

		jTxs = append(jTxs, &JSONEmbeddedTx{
			ID:       trx.ID(),
			Origin:   origin,
			Nonce:    math.HexOrDecimal64(trx.Nonce()),
			GasPrice: (*math.HexOrDecimal256)(trx.GasPrice()),
			Gas:      trx.Gas(),
			To:       trx.To(),
			Value:    (*math.HexOrDecimal256)(trx.Value()),
			Data:     hexutil.Encode(trx.Data()),
			Size:     uint32(trx.Size()),

			GasUsed:         receipt.GasUsed,
			Paid:            (*math.HexOrDecimal256)(receipt.Paid),
			Reverted:        receipt.Reverted,
			Output:          hexutil.Encode(receipt.Output),
			ContractAddress: receipt.ContractAddress,
			Events:          events,
		})
	}
	return jTxs
}
