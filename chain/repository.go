// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain stores sealed blocks and their receipts, and tracks the best block.
package chain

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/cache"
	"github.com/vechain/blockexec/co"
	"github.com/vechain/blockexec/kv"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

const (
	hdrStoreName   = "chain.hdr"   // for block summaries
	bodyStoreName  = "chain.body"  // for block txs and receipts
	propStoreName  = "chain.props" // for property-named blocks such as best block
	indexStoreName = "chain.idx"   // for the canonical number to id index
)

var (
	logger         = log.WithContext("pkg", "chain")
	errNotFound    = errors.New("not found")
	bestBlockIDKey = []byte("best-block-id")
)

// Repository stores block headers, txs and receipts.
//
// It's thread-safe.
type Repository struct {
	db         *muxdb.MuxDB
	hdrStore   kv.Store
	bodyStore  kv.Store
	propStore  kv.Store
	indexStore kv.Store

	genesis *block.Block
	tag     byte

	writeLock   sync.Mutex
	bestSummary atomic.Value
	tick        co.Signal

	caches struct {
		summaries *cache.LRU
		txs       *cache.LRU
		receipts  *cache.LRU
	}
}

// NewRepository create an instance of repository.
func NewRepository(db *muxdb.MuxDB, genesis *block.Block) (*Repository, error) {
	if genesis.Header().Number() != 0 {
		return nil, errors.New("genesis number != 0")
	}
	if len(genesis.Transactions()) != 0 {
		return nil, errors.New("genesis block should not have transactions")
	}

	genesisID := genesis.Header().ID()
	repo := &Repository{
		db:         db,
		hdrStore:   db.NewStore(hdrStoreName),
		bodyStore:  db.NewStore(bodyStoreName),
		propStore:  db.NewStore(propStoreName),
		indexStore: db.NewStore(indexStoreName),
		genesis:    genesis,
		tag:        genesisID[31],
	}

	repo.caches.summaries = cache.MustNewLRU(512)
	repo.caches.txs = cache.MustNewLRU(512)
	repo.caches.receipts = cache.MustNewLRU(512)

	if val, err := repo.propStore.Get(bestBlockIDKey); err != nil {
		if !repo.propStore.IsNotFound(err) {
			return nil, err
		}
		if _, err := repo.saveBlock(genesis, nil, true); err != nil {
			return nil, err
		}
	} else {
		existingGenesisID, err := repo.GetBlockIDByNumber(0)
		if err != nil {
			return nil, errors.Wrap(err, "get existing genesis id")
		}
		if existingGenesisID != genesisID {
			return nil, errors.New("genesis mismatch")
		}

		summary, err := repo.GetBlockSummary(thor.BytesToBytes32(val))
		if err != nil {
			return nil, errors.Wrap(err, "get best block")
		}
		repo.bestSummary.Store(summary)
	}
	return repo, nil
}

// ChainTag returns chain tag, which is the last byte of genesis id.
func (r *Repository) ChainTag() byte {
	return r.tag
}

// GenesisBlock returns genesis block.
func (r *Repository) GenesisBlock() *block.Block {
	return r.genesis
}

// BestBlockSummary returns the summary of the best block, which is the newest block of canonical chain.
func (r *Repository) BestBlockSummary() *BlockSummary {
	return r.bestSummary.Load().(*BlockSummary)
}

func (r *Repository) saveBlock(blk *block.Block, receipts tx.Receipts, asBest bool) (*BlockSummary, error) {
	var (
		header = blk.Header()
		id     = header.ID()
		txs    = blk.Transactions()
		txIDs  = make([]thor.Bytes32, 0, len(txs))
	)
	for _, trx := range txs {
		txIDs = append(txIDs, trx.ID())
	}
	summary := &BlockSummary{header, txIDs, blk.Size()}

	if err := r.bodyStore.Batch(func(w kv.PutFlusher) error {
		if err := saveRLP(w, bodyKey(id, txsFlag), txs); err != nil {
			return err
		}
		return saveRLP(w, bodyKey(id, receiptsFlag), receipts)
	}); err != nil {
		return nil, err
	}
	if err := r.hdrStore.Batch(func(w kv.PutFlusher) error {
		return saveBlockSummary(w, summary)
	}); err != nil {
		return nil, err
	}
	r.caches.summaries.Add(id, summary)

	if asBest {
		if err := r.setBest(summary); err != nil {
			return nil, err
		}
	}
	metricBlockAdded().AddWithLabel(1, map[string]string{"best": strconv.FormatBool(asBest)})
	return summary, nil
}

// setBest points the canonical index to the chain ending at summary.
func (r *Repository) setBest(summary *BlockSummary) error {
	var oldBestNum uint32
	if old, ok := r.bestSummary.Load().(*BlockSummary); ok {
		oldBestNum = old.Header.Number()
	}

	if err := r.indexStore.Batch(func(w kv.PutFlusher) error {
		// drop index entries above the new best
		for n := summary.Header.Number() + 1; n <= oldBestNum; n++ {
			if err := w.Delete(numberKey(n)); err != nil {
				return err
			}
		}
		// walk back until the index agrees
		header := summary.Header
		for {
			id := header.ID()
			if existing, err := r.indexStore.Get(numberKey(header.Number())); err == nil && thor.BytesToBytes32(existing) == id {
				return nil
			}
			if err := w.Put(numberKey(header.Number()), id[:]); err != nil {
				return err
			}
			if header.Number() == 0 {
				return nil
			}
			parent, err := r.GetBlockSummary(header.ParentID())
			if err != nil {
				return err
			}
			header = parent.Header
		}
	}); err != nil {
		return err
	}

	id := summary.Header.ID()
	if err := r.propStore.Put(bestBlockIDKey, id[:]); err != nil {
		return err
	}
	r.bestSummary.Store(summary)
	metricBestBlockNumber().Set(int64(summary.Header.Number()))
	r.tick.Broadcast()
	return nil
}

// AddBlock add a new block with its receipts into repository.
func (r *Repository) AddBlock(newBlock *block.Block, receipts tx.Receipts, asBest bool) error {
	if len(newBlock.Transactions()) != len(receipts) {
		return errors.New("txs and receipts count mismatch")
	}
	header := newBlock.Header()
	if _, err := r.GetBlockSummary(header.ParentID()); err != nil {
		if r.IsNotFound(err) {
			return errors.New("parent missing")
		}
		return err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.saveBlock(newBlock, receipts, asBest); err != nil {
		return err
	}
	logger.Debug("block added", "id", header.ID(), "txs", len(receipts), "best", asBest)
	return nil
}

// SetBestBlockID sets the given block id as best block id.
func (r *Repository) SetBestBlockID(id thor.Bytes32) error {
	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return err
	}
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	return r.setBest(summary)
}

// GetBlockSummary get block summary by block id.
func (r *Repository) GetBlockSummary(id thor.Bytes32) (*BlockSummary, error) {
	summary, err := r.caches.summaries.GetOrLoad(id, func(any) (any, error) {
		return loadBlockSummary(r.hdrStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.reportCacheStats("summary", r.caches.summaries)
	return summary.(*BlockSummary), nil
}

// GetBlockHeader get block header by block id.
func (r *Repository) GetBlockHeader(id thor.Bytes32) (*block.Header, error) {
	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return nil, err
	}
	return summary.Header, nil
}

// GetBlockTransactions get all txs of the block for given block id.
func (r *Repository) GetBlockTransactions(id thor.Bytes32) (tx.Transactions, error) {
	txs, err := r.caches.txs.GetOrLoad(id, func(any) (any, error) {
		return loadTransactions(r.bodyStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.reportCacheStats("tx", r.caches.txs)
	return txs.(tx.Transactions), nil
}

// GetBlockReceipts get all tx receipts of the block for given block id.
func (r *Repository) GetBlockReceipts(id thor.Bytes32) (tx.Receipts, error) {
	receipts, err := r.caches.receipts.GetOrLoad(id, func(any) (any, error) {
		return loadReceipts(r.bodyStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.reportCacheStats("receipt", r.caches.receipts)
	return receipts.(tx.Receipts), nil
}

// GetBlock get block by id.
func (r *Repository) GetBlock(id thor.Bytes32) (*block.Block, error) {
	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return nil, err
	}
	txs, err := r.GetBlockTransactions(id)
	if err != nil {
		return nil, err
	}
	return block.Compose(summary.Header, txs), nil
}

// GetBlockIDByNumber returns the id of the canonical block with the given number.
func (r *Repository) GetBlockIDByNumber(num uint32) (thor.Bytes32, error) {
	val, err := r.indexStore.Get(numberKey(num))
	if err != nil {
		return thor.Bytes32{}, err
	}
	return thor.BytesToBytes32(val), nil
}

// IsNotFound returns if the given error means not found.
func (r *Repository) IsNotFound(err error) bool {
	return err == errNotFound || r.db.IsNotFound(errors.Cause(err))
}

// NewTicker create a signal Waiter to receive event that the best block changed.
func (r *Repository) NewTicker() co.Waiter {
	return r.tick.NewWaiter()
}

func (r *Repository) reportCacheStats(typ string, c *cache.LRU) {
	if flag, hit, miss := c.Stats().Stats(); flag {
		metricCacheHitMiss().SetWithLabel(hit, map[string]string{"type": typ, "event": "hit"})
		metricCacheHitMiss().SetWithLabel(miss, map[string]string{"type": typ, "event": "miss"})
	}
}
