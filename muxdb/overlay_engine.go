// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vechain/blockexec/kv"
)

// flags prefixed to values in the overlay layer.
const (
	overlayDeleted = byte(0)
	overlayPresent = byte(1)
)

// overlayEngine buffers all writes in a memory layer on top of a base engine,
// which is only read. Deletions are kept as tombstones in the memory layer.
type overlayEngine struct {
	base engine
	mem  *leveldb.DB
}

func newOverlayEngine(base engine) (engine, error) {
	mem, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &overlayEngine{base, mem}, nil
}

// Close releases the memory layer only. The base engine is owned by the parent db.
func (o *overlayEngine) Close() error {
	return o.mem.Close()
}

func (o *overlayEngine) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound || o.base.IsNotFound(err)
}

func (o *overlayEngine) Get(key []byte) ([]byte, error) {
	val, err := o.mem.Get(key, &readOpt)
	if err == nil {
		if val[0] == overlayDeleted {
			return nil, leveldb.ErrNotFound
		}
		return val[1:], nil
	}
	if err != leveldb.ErrNotFound {
		return nil, err
	}
	return o.base.Get(key)
}

func (o *overlayEngine) Has(key []byte) (bool, error) {
	val, err := o.mem.Get(key, &readOpt)
	if err == nil {
		return val[0] == overlayPresent, nil
	}
	if err != leveldb.ErrNotFound {
		return false, err
	}
	return o.base.Has(key)
}

func (o *overlayEngine) Put(key, val []byte) error {
	return o.mem.Put(key, append([]byte{overlayPresent}, val...), &writeOpt)
}

func (o *overlayEngine) Delete(key []byte) error {
	return o.mem.Put(key, []byte{overlayDeleted}, &writeOpt)
}

// Snapshot runs fn against the live view. The overlay is private to its
// owner, so there's no concurrent writer to isolate from.
func (o *overlayEngine) Snapshot(fn func(kv.Getter) error) error {
	return fn(o)
}

func (o *overlayEngine) Batch(fn func(kv.PutFlusher) error) error {
	batch := &leveldb.Batch{}
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := o.mem.Write(batch, &writeOpt); err != nil {
			return err
		}
		batch.Reset()
		return nil
	}
	if err := fn(&struct {
		kv.PutFunc
		kv.DeleteFunc
		kv.FlushFunc
	}{
		func(key, val []byte) error {
			batch.Put(key, append([]byte{overlayPresent}, val...))
			return nil
		},
		func(key []byte) error {
			batch.Put(key, []byte{overlayDeleted})
			return nil
		},
		flush,
	}); err != nil {
		return err
	}
	return flush()
}

type overlayPair struct {
	key, val []byte
}

func (p *overlayPair) Key() []byte   { return p.key }
func (p *overlayPair) Value() []byte { return p.val[1:] }

// Iterate merges pairs of the memory layer into the pairs of the base engine.
func (o *overlayEngine) Iterate(rng kv.Range, fn func(kv.Pair) bool) error {
	var pending []*overlayPair
	it := o.mem.NewIterator((*util.Range)(&rng), &scanOpt)
	for it.Next() {
		pending = append(pending, &overlayPair{
			bytes.Clone(it.Key()),
			bytes.Clone(it.Value()),
		})
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	stopped := false
	// emitBefore emits pending pairs with key less than limit (all when limit is nil)
	emitBefore := func(limit []byte) bool {
		for len(pending) > 0 && (limit == nil || bytes.Compare(pending[0].key, limit) < 0) {
			p := pending[0]
			pending = pending[1:]
			if p.val[0] == overlayPresent && !fn(p) {
				stopped = true
				return false
			}
		}
		return true
	}

	if err := o.base.Iterate(rng, func(pair kv.Pair) bool {
		key := pair.Key()
		if !emitBefore(key) {
			return false
		}
		if len(pending) > 0 && bytes.Equal(pending[0].key, key) {
			// shadowed by the memory layer
			p := pending[0]
			pending = pending[1:]
			if p.val[0] == overlayDeleted {
				return true
			}
			if !fn(p) {
				stopped = true
				return false
			}
			return true
		}
		if !fn(pair) {
			stopped = true
			return false
		}
		return true
	}); err != nil {
		return err
	}
	if !stopped {
		emitBefore(nil)
	}
	return nil
}
