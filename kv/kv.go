// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the key-value storage abstraction shared by the storage layer.
package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// PutFlusher defines putter with Flush method.
type PutFlusher interface {
	Putter
	// Flush writes buffered ops. After flush, the batch becomes non-atomic.
	Flush() error
}

// Pair defines key-value pair.
type Pair interface {
	Key() []byte
	Value() []byte
}

// Range is the key range.
type Range struct {
	Start []byte // start of key range (included)
	Limit []byte // limit of key range (excluded)
}

// Store defines the full functional kv store.
type Store interface {
	Getter
	Putter

	// IsNotFound returns if the error indicates key not found.
	IsNotFound(err error) bool
	// Snapshot runs fn against a consistent read view of the store.
	Snapshot(fn func(Getter) error) error
	// Batch runs fn and writes all ops it made in one batch.
	Batch(fn func(PutFlusher) error) error
	// Iterate iterates over pairs in range, until fn returns false.
	Iterate(r Range, fn func(Pair) bool) error
}
