// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package blockstate implements the mutable execution context of one block under construction.
//
// A BlockState is created either as the genesis state or from a parent block. It's
// mutated only by the runtime, one transaction at a time, and becomes immutable once sealed.
// The account state, the tx trie and the receipt trie are committed after every applied
// transaction, so a Snapshot is just a tuple of roots, which can be reverted to as long as
// the trie nodes behind them are retained.
package blockstate

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
	"github.com/vechain/blockexec/tx"
)

var logger = log.WithContext("pkg", "blockstate")

var (
	// ErrInvalidParent is returned when the parent block has no resolvable state.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrSealed is returned when mutating a sealed block state.
	ErrSealed = errors.New("block state sealed")
	// ErrInvalidSnapshot is returned when reverting to a snapshot whose trie nodes are not retained.
	ErrInvalidSnapshot = state.ErrInvalidSnapshot
)

// ParentReader resolves parent block headers.
type ParentReader interface {
	GetBlockHeader(id thor.Bytes32) (*block.Header, error)
}

// Snapshot is the fingerprint of a block state. It's comparable.
type Snapshot struct {
	StateRoot    thor.Bytes32
	TxsRoot      thor.Bytes32
	ReceiptsRoot thor.Bytes32
	TxCount      uint32
	GasUsed      uint64
}

// BlockState is the execution context of a block under construction.
// It's not safe for concurrent use.
type BlockState struct {
	db      *muxdb.MuxDB
	parents ParentReader
	parent  *block.Header     // nil for genesis
	genesis *genesis.Genesis // non-nil for genesis

	parentID  thor.Bytes32
	coinbase  thor.Address
	timestamp uint64
	gasLimit  uint64
	gasUsed   uint64

	state       *state.State
	txs         tx.Transactions
	receipts    tx.Receipts
	txTrie      *trie.Trie
	receiptTrie *trie.Trie
	// roots of the tries, updated with them so that reading a snapshot doesn't touch the tries
	txsRoot      thor.Bytes32
	receiptsRoot thor.Bytes32

	sealed bool
}

// Option customizes a block state derived from parent.
type Option func(bs *BlockState) error

// WithGasLimit sets the gas limit, which must be valid against the parent gas limit.
func WithGasLimit(limit uint64) Option {
	return func(bs *BlockState) error {
		if limit == bs.gasLimit {
			return nil
		}
		if !thor.GasLimit(limit).IsValid(bs.parent.GasLimit()) {
			return errors.Errorf("invalid gas limit %v, parent %v", limit, bs.parent.GasLimit())
		}
		bs.gasLimit = limit
		return nil
	}
}

// Genesis builds the genesis state on db. It has no parent, and its account state is
// the genesis allocation.
func Genesis(db *muxdb.MuxDB, gen *genesis.Genesis) (*BlockState, error) {
	blk, err := gen.Build(state.NewStater(db))
	if err != nil {
		return nil, errors.Wrap(err, "build genesis")
	}
	header := blk.Header()

	bs := &BlockState{
		db:        db,
		genesis:   gen,
		parentID:  header.ParentID(),
		coinbase:  header.Beneficiary(),
		timestamp: header.Timestamp(),
		gasLimit:  header.GasLimit(),
	}
	if err := bs.init(header.StateRoot()); err != nil {
		return nil, err
	}
	return bs, nil
}

// InitFromParent creates a block state whose account state is the post-state of parent,
// with empty tx log and zero gas used. ErrInvalidParent is returned if the parent is unknown
// to parents, or its state root is not retained.
func InitFromParent(db *muxdb.MuxDB, parents ParentReader, parent *block.Header, coinbase thor.Address, timestamp uint64, opts ...Option) (*BlockState, error) {
	if parent == nil {
		return nil, ErrInvalidParent
	}
	if parents != nil {
		if _, err := parents.GetBlockHeader(parent.ID()); err != nil {
			return nil, errors.WithMessagef(ErrInvalidParent, "%v: %v", parent.ID().AbbrevString(), err)
		}
	}

	bs := &BlockState{
		db:        db,
		parents:   parents,
		parent:    parent,
		parentID:  parent.ID(),
		coinbase:  coinbase,
		timestamp: timestamp,
		gasLimit:  parent.GasLimit(),
	}
	for _, opt := range opts {
		if err := opt(bs); err != nil {
			return nil, err
		}
	}
	if err := bs.init(parent.StateRoot()); err != nil {
		if errors.Is(err, state.ErrInvalidSnapshot) {
			return nil, errors.WithMessagef(ErrInvalidParent, "%v: state root %v not retained", parent.ID().AbbrevString(), parent.StateRoot().AbbrevString())
		}
		return nil, err
	}
	return bs, nil
}

func (bs *BlockState) init(stateRoot thor.Bytes32) (err error) {
	if bs.state, err = state.New(bs.db, stateRoot); err != nil {
		return err
	}
	if bs.txTrie, err = bs.db.NewTrie(thor.EmptyRoot); err != nil {
		return err
	}
	if bs.receiptTrie, err = bs.db.NewTrie(thor.EmptyRoot); err != nil {
		return err
	}
	bs.txsRoot, bs.receiptsRoot = bs.txTrie.Hash(), bs.receiptTrie.Hash()
	return nil
}

// Derive creates a fresh block state on db, with the same parent (or genesis), coinbase,
// timestamp and gas limit, but none of the applied txs. db is usually a fork of the db of bs.
func (bs *BlockState) Derive(db *muxdb.MuxDB) (*BlockState, error) {
	if bs.genesis != nil {
		return Genesis(db, bs.genesis)
	}
	return InitFromParent(db, bs.parents, bs.parent, bs.coinbase, bs.timestamp, WithGasLimit(bs.gasLimit))
}

// Clone creates an unsealed copy of bs on the same db. Changes made to either are not
// visible to the other.
func (bs *BlockState) Clone() (*BlockState, error) {
	st, err := bs.state.Checkout(bs.state.Root())
	if err != nil {
		return nil, err
	}
	cpy := *bs
	cpy.state = st
	cpy.txs = bs.txs.Copy()
	cpy.receipts = append(tx.Receipts(nil), bs.receipts...)
	cpy.txTrie = bs.txTrie.Copy()
	cpy.receiptTrie = bs.receiptTrie.Copy()
	cpy.sealed = false
	return &cpy, nil
}

// HasParent returns whether bs is derived from a parent block.
func (bs *BlockState) HasParent() bool {
	return bs.parent != nil
}

// Parent returns the parent block header. ErrInvalidParent is returned for genesis.
func (bs *BlockState) Parent() (*block.Header, error) {
	if bs.parent == nil {
		return nil, ErrInvalidParent
	}
	return bs.parent, nil
}

// ParentID returns id of the parent block.
func (bs *BlockState) ParentID() thor.Bytes32 { return bs.parentID }

// Number returns the number of the block under construction.
func (bs *BlockState) Number() uint32 { return block.Number(bs.parentID) + 1 }

// Coinbase returns the beneficiary of tx fees.
func (bs *BlockState) Coinbase() thor.Address { return bs.coinbase }

// Timestamp returns the block timestamp.
func (bs *BlockState) Timestamp() uint64 { return bs.timestamp }

// GasLimit returns the block gas limit.
func (bs *BlockState) GasLimit() uint64 { return bs.gasLimit }

// GasUsed returns gas used by applied txs.
func (bs *BlockState) GasUsed() uint64 { return bs.gasUsed }

// IsSealed returns whether bs is sealed.
func (bs *BlockState) IsSealed() bool { return bs.sealed }

// DB returns the db bs lives on.
func (bs *BlockState) DB() *muxdb.MuxDB { return bs.db }

// Genesis returns the genesis bs is built from, or nil if bs is derived from parent.
func (bs *BlockState) Genesis() *genesis.Genesis { return bs.genesis }

// Transactions returns applied txs in order.
func (bs *BlockState) Transactions() tx.Transactions {
	return bs.txs.Copy()
}

// Receipts returns receipts of applied txs in order.
func (bs *BlockState) Receipts() tx.Receipts {
	return append(tx.Receipts(nil), bs.receipts...)
}

// State returns the account state. Only the runtime should mutate it.
func (bs *BlockState) State() *state.State {
	return bs.state
}

// GetNonce returns the nonce of addr, 0 for unknown accounts.
func (bs *BlockState) GetNonce(addr thor.Address) (uint64, error) {
	return bs.state.GetNonce(addr)
}

// StateRoot returns the root of account state after the last applied tx.
func (bs *BlockState) StateRoot() thor.Bytes32 {
	return bs.state.Root()
}

// TxsRoot returns the root of the tx trie.
func (bs *BlockState) TxsRoot() thor.Bytes32 {
	return bs.txsRoot
}

// ReceiptsRoot returns the root of the receipt trie.
func (bs *BlockState) ReceiptsRoot() thor.Bytes32 {
	return bs.receiptsRoot
}

// Snapshot returns the fingerprint of bs. It's O(1), and only reads bs, so it can be
// called concurrently as long as bs is not being mutated.
func (bs *BlockState) Snapshot() Snapshot {
	return Snapshot{
		StateRoot:    bs.StateRoot(),
		TxsRoot:      bs.TxsRoot(),
		ReceiptsRoot: bs.ReceiptsRoot(),
		TxCount:      uint32(len(bs.txs)),
		GasUsed:      bs.gasUsed,
	}
}

// Revert restores bs to the snapshot, including the applied txs and receipts.
// The snapshot may be taken from another block state, as long as its trie nodes are
// reachable from the db of bs. ErrInvalidSnapshot is returned if they are not retained.
func (bs *BlockState) Revert(snap Snapshot) error {
	if bs.sealed {
		return ErrSealed
	}

	txTrie, txs, err := loadList[*tx.Transaction](bs.db, snap.TxsRoot, snap.TxCount)
	if err != nil {
		return err
	}
	receiptTrie, receipts, err := loadList[*tx.Receipt](bs.db, snap.ReceiptsRoot, snap.TxCount)
	if err != nil {
		return err
	}
	if err := bs.state.Revert(snap.StateRoot); err != nil {
		return err
	}

	bs.txs = txs
	bs.receipts = receipts
	bs.txTrie = txTrie
	bs.receiptTrie = receiptTrie
	bs.txsRoot = txTrie.Hash()
	bs.receiptsRoot = receiptTrie.Hash()
	bs.gasUsed = snap.GasUsed
	logger.Trace("reverted", "number", bs.Number(), "txs", snap.TxCount, "root", snap.StateRoot)
	return nil
}

// loadList loads the first n items of the list trie.
func loadList[T any](db *muxdb.MuxDB, root thor.Bytes32, n uint32) (*trie.Trie, []T, error) {
	ok, err := db.HasTrieNode(root)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidSnapshot
	}
	t, err := db.NewTrie(root)
	if err != nil {
		return nil, nil, err
	}

	items := make([]T, 0, n)
	for i := range int(n) {
		data, err := t.Get(trie.IndexKey(i))
		if err != nil {
			if trie.IsMissingNode(err) {
				return nil, nil, ErrInvalidSnapshot
			}
			return nil, nil, err
		}
		if len(data) == 0 {
			return nil, nil, errors.WithMessagef(ErrInvalidSnapshot, "list item %v missing in trie %v", i, root.AbbrevString())
		}
		var item T
		if err := rlp.DecodeBytes(data, &item); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	return t, items, nil
}

// Commit persists the state changes made by the tx, and records the tx and its receipt.
func (bs *BlockState) Commit(trx *tx.Transaction, receipt *tx.Receipt) error {
	if bs.sealed {
		return ErrSealed
	}
	if _, err := bs.state.Commit(); err != nil {
		return err
	}

	key := trie.IndexKey(len(bs.txs))
	txData, err := rlp.EncodeToBytes(trx)
	if err != nil {
		return err
	}
	receiptData, err := rlp.EncodeToBytes(receipt)
	if err != nil {
		return err
	}
	txTrie, receiptTrie := bs.txTrie.Copy(), bs.receiptTrie.Copy()
	if err := txTrie.Update(key, txData); err != nil {
		return err
	}
	if err := receiptTrie.Update(key, receiptData); err != nil {
		return err
	}
	var txsRoot, receiptsRoot thor.Bytes32
	if err := bs.db.Batch(func(w *muxdb.Writer) (err error) {
		if txsRoot, err = w.CommitTrie(txTrie); err != nil {
			return err
		}
		receiptsRoot, err = w.CommitTrie(receiptTrie)
		return err
	}); err != nil {
		return err
	}

	bs.txTrie, bs.receiptTrie = txTrie, receiptTrie
	bs.txsRoot, bs.receiptsRoot = txsRoot, receiptsRoot
	bs.txs = append(bs.txs, trx)
	bs.receipts = append(bs.receipts, receipt)
	bs.gasUsed += receipt.GasUsed
	return nil
}

// Discard drops state changes not committed yet.
func (bs *BlockState) Discard() error {
	return bs.state.Revert(bs.state.Root())
}

// Seal finalizes bs into a block. bs is immutable afterwards, and all mutations fail with ErrSealed.
func (bs *BlockState) Seal() (*block.Block, tx.Receipts, error) {
	if bs.sealed {
		return nil, nil, ErrSealed
	}
	if bs.state.Dirty() {
		return nil, nil, errors.New("uncommitted state changes")
	}

	builder := new(block.Builder).
		ParentID(bs.parentID).
		Timestamp(bs.timestamp).
		GasLimit(bs.gasLimit).
		GasUsed(bs.gasUsed).
		Beneficiary(bs.coinbase).
		StateRoot(bs.StateRoot()).
		ReceiptsRoot(bs.ReceiptsRoot())
	for _, trx := range bs.txs {
		builder.Transaction(trx)
	}
	blk := builder.Build()
	if blk.Header().TxsRoot() != bs.TxsRoot() {
		return nil, nil, errors.New("txs root mismatch")
	}

	bs.sealed = true
	logger.Debug("sealed", "number", bs.Number(), "id", blk.Header().ID(), "txs", len(bs.txs), "gasUsed", bs.gasUsed)
	return blk, bs.Receipts(), nil
}
