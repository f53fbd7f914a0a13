// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/kv"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

const (
	txsFlag      = byte(0) // flag byte of the key for saving txs blob
	receiptsFlag = byte(1) // flag byte of the key for saving receipts blob
)

// BlockSummary presents block summary.
type BlockSummary struct {
	Header *block.Header
	Txs    []thor.Bytes32
	Size   uint64
}

// the key for txs/receipts of a block.
// it consists of: ( block id | flag )
func bodyKey(id thor.Bytes32, flag byte) []byte {
	return append(id.Bytes(), flag)
}

func numberKey(num uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, num)
}

func saveRLP(w kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, data)
}

func loadRLP(r kv.Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}

func saveBlockSummary(w kv.Putter, summary *BlockSummary) error {
	return saveRLP(w, summary.Header.ID().Bytes(), summary)
}

func loadBlockSummary(r kv.Getter, id thor.Bytes32) (*BlockSummary, error) {
	var summary BlockSummary
	if err := loadRLP(r, id[:], &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func loadTransactions(r kv.Getter, id thor.Bytes32) (tx.Transactions, error) {
	var txs tx.Transactions
	if err := loadRLP(r, bodyKey(id, txsFlag), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func loadReceipts(r kv.Getter, id thor.Bytes32) (tx.Receipts, error) {
	var receipts tx.Receipts
	if err := loadRLP(r, bodyKey(id, receiptsFlag), &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}
