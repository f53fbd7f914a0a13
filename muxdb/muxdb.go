// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package muxdb implements the storage layer for block states.
// It manages a content-addressed space of trie nodes, and general purpose named kv-stores.
package muxdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vechain/blockexec/kv"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
)

const (
	trieNodeSpace   = byte(0) // the key space for trie nodes, keyed by node hash.
	namedStoreSpace = byte(1) // the key space for named store.
)

const (
	propStoreName = "muxdb.props"
	configKey     = "config"
	// layoutVersion is bumped when the key layout changes.
	layoutVersion = 1
)

var logger = log.WithContext("pkg", "muxdb")

// ErrForked is returned when an operation is not allowed on a forked DB.
var ErrForked = errors.New("not allowed on forked db")

// Options optional parameters for MuxDB.
type Options struct {
	// TrieNodeCacheSizeMB is the size of the cache for trie node blobs.
	TrieNodeCacheSizeMB int

	// OpenFilesCacheCapacity is the capacity of open files caching for underlying database.
	OpenFilesCacheCapacity int
	// ReadCacheMB is the size of read cache for underlying database.
	ReadCacheMB int
	// WriteBufferMB is the size of write buffer for underlying database.
	WriteBufferMB int
}

// MuxDB is the database to efficiently store state tries and block data.
type MuxDB struct {
	engine engine
	nodes  *nodeCache
	forked bool
}

// Open opens or creates DB at the given path.
func Open(path string, options *Options) (*MuxDB, error) {
	// prepare leveldb options
	ldbOpts := opt.Options{
		OpenFilesCacheCapacity: options.OpenFilesCacheCapacity,
		BlockCacheCapacity:     options.ReadCacheMB * opt.MiB,
		WriteBuffer:            options.WriteBufferMB * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		BlockSize:              1024 * 32, // balance performance of point reads and compression ratio.
		CompactionTableSize:    4 * opt.MiB,
	}

	// open leveldb
	ldb, err := leveldb.OpenFile(path, &ldbOpts)
	if _, corrupted := err.(*dberrors.ErrCorrupted); corrupted {
		logger.Warn("database corrupted, try to recover", "path", path)
		ldb, err = leveldb.RecoverFile(path, &ldbOpts)
	}
	if err != nil {
		return nil, err
	}

	// as engine
	engine := newLevelEngine(ldb)

	propStore := kv.Bucket(string(namedStoreSpace) + propStoreName).NewStore(engine)
	cfg := config{Version: layoutVersion}
	if err := cfg.LoadOrSave(propStore); err != nil {
		ldb.Close()
		return nil, err
	}
	if cfg.Version != layoutVersion {
		ldb.Close()
		return nil, errors.Errorf("incompatible db layout version %v, want %v", cfg.Version, layoutVersion)
	}

	return &MuxDB{
		engine: engine,
		nodes:  newNodeCache(options.TrieNodeCacheSizeMB),
	}, nil
}

// NewMem creates a memory-backed DB.
func NewMem() *MuxDB {
	storage := storage.NewMemStorage()
	ldb, _ := leveldb.Open(storage, nil)

	return &MuxDB{
		engine: newLevelEngine(ldb),
	}
}

// Close closes the DB. Closing a forked DB releases its own writes only.
func (db *MuxDB) Close() error {
	return db.engine.Close()
}

// Fork creates a DB that reads through to db and keeps all its writes in memory.
// Nothing written to the fork is ever visible to db. The fork must not outlive db,
// and db must not be pruned while the fork is in use.
func (db *MuxDB) Fork() (*MuxDB, error) {
	engine, err := newOverlayEngine(db.engine)
	if err != nil {
		return nil, err
	}
	return &MuxDB{
		engine: engine,
		forked: true,
	}, nil
}

// IsForked returns whether the db is created by Fork.
func (db *MuxDB) IsForked() bool {
	return db.forked
}

// NewStore creates named kv-store.
func (db *MuxDB) NewStore(name string) kv.Store {
	return kv.Bucket(string(namedStoreSpace) + name).NewStore(db.engine)
}

// IsNotFound returns if the error indicates key not found.
func (db *MuxDB) IsNotFound(err error) bool {
	return db.engine.IsNotFound(err)
}

// NewTrie creates trie with existing root node.
//
// If root is zero or blake2b hash of an empty string, the trie is
// initially empty. Otherwise trie.MissingNodeError is returned when
// the root node is not retained.
func (db *MuxDB) NewTrie(root thor.Bytes32) (*trie.Trie, error) {
	return trie.New(root, (*nodeReader)(db))
}

// HasTrieNode returns whether the trie node with the given hash is stored.
func (db *MuxDB) HasTrieNode(hash thor.Bytes32) (bool, error) {
	if hash.IsZero() || hash == thor.EmptyRoot {
		return true, nil
	}
	return db.engine.Has(nodeKey(hash[:]))
}

// Batch performs a batch of writes, which become visible when fn returns nil.
func (db *MuxDB) Batch(fn func(w *Writer) error) error {
	return db.engine.Batch(func(putter kv.PutFlusher) error {
		w := &Writer{db: db, putter: putter}
		if err := fn(w); err != nil {
			return err
		}
		metricCommittedNodes().Add(int64(w.nodes))
		return nil
	})
}

// PruneTrieNodes deletes stored trie nodes for which live returns false.
// It returns the count of deleted nodes.
func (db *MuxDB) PruneTrieNodes(ctx context.Context, live func(hash thor.Bytes32) bool) (int, error) {
	if db.forked {
		return 0, ErrForked
	}

	const batchSize = 4096
	var (
		dead  [][]byte
		count int
	)
	flush := func() error {
		if err := db.engine.Batch(func(w kv.PutFlusher) error {
			for _, key := range dead {
				if err := w.Delete(key); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
		count += len(dead)
		dead = dead[:0]
		return nil
	}

	var iterErr error
	if err := db.engine.Iterate(kv.Range(*util.BytesPrefix([]byte{trieNodeSpace})), func(pair kv.Pair) bool {
		if err := ctx.Err(); err != nil {
			iterErr = err
			return false
		}
		key := pair.Key()
		if len(key) != 1+32 {
			return true
		}
		if !live(thor.BytesToBytes32(key[1:])) {
			dead = append(dead, append([]byte(nil), key...))
			// the iterator works on an implicit snapshot, deleting along is safe
			if len(dead) >= batchSize {
				if iterErr = flush(); iterErr != nil {
					return false
				}
			}
		}
		return true
	}); err != nil {
		return count, err
	}
	if iterErr == nil {
		iterErr = flush()
	}
	// nodes deleted so far are gone even when failed
	db.nodes.Reset()
	if iterErr != nil {
		return count, iterErr
	}

	metricPrunedNodes().Add(int64(count))
	logger.Debug("trie nodes pruned", "count", count)
	return count, nil
}

// Writer is passed to the function of Batch.
type Writer struct {
	db     *MuxDB
	putter kv.PutFlusher
	nodes  int
}

// CommitTrie writes all dirty nodes of t and returns the root hash.
func (w *Writer) CommitTrie(t *trie.Trie) (thor.Bytes32, error) {
	return t.Commit((*nodeWriter)(w))
}

// Store returns the putter of the named store, which writes into the batch.
func (w *Writer) Store(name string) kv.Putter {
	return kv.Bucket(string(namedStoreSpace) + name).NewPutter(w.putter)
}

type nodeReader MuxDB

func (r *nodeReader) Get(hash []byte) ([]byte, error) {
	db := (*MuxDB)(r)
	if blob := db.nodes.Get(hash); blob != nil {
		return blob, nil
	}
	blob, err := db.engine.Get(nodeKey(hash))
	if err != nil {
		return nil, err
	}
	db.nodes.Add(hash, blob)
	return blob, nil
}

type nodeWriter Writer

func (w *nodeWriter) Put(hash, blob []byte) error {
	if err := w.putter.Put(nodeKey(hash), blob); err != nil {
		return err
	}
	w.nodes++
	w.db.nodes.Add(hash, blob)
	return nil
}

func nodeKey(hash []byte) []byte {
	return append([]byte{trieNodeSpace}, hash...)
}

type config struct {
	Version int
}

func (c *config) LoadOrSave(store kv.Store) error {
	// try to load
	data, err := store.Get([]byte(configKey))
	if err == nil {
		// and decode
		return json.Unmarshal(data, c)
	}

	if !store.IsNotFound(err) {
		return err
	}
	// not found
	// encode and save
	data, err = json.Marshal(c)
	if err != nil {
		return err
	}
	return store.Put([]byte(configKey), data)
}
