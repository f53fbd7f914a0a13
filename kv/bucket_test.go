// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("not found")

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errNotFound
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func (m mem) IsNotFound(err error) bool {
	return err == errNotFound
}

func (m mem) Snapshot(fn func(Getter) error) error {
	return fn(m)
}

func (m mem) Batch(fn func(PutFlusher) error) error {
	return fn(&struct {
		Putter
		FlushFunc
	}{m, func() error { return nil }})
}

func (m mem) Iterate(r Range, fn func(Pair) bool) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		if bytes.Compare([]byte(k), r.Start) >= 0 && (len(r.Limit) == 0 || bytes.Compare([]byte(k), r.Limit) < 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(&struct {
			KeyFunc
			ValueFunc
		}{
			func() []byte { return []byte(k) },
			func() []byte { return []byte(m[k]) },
		}) {
			break
		}
	}
	return nil
}

func TestBucket_GetterGet(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want string
	}{
		{Bucket(""), "k1", "v1"},
		{Bucket(""), "k2", "v2"},
		{Bucket("k"), "k1", ""},
		{Bucket("k"), "1", "v1"},
		{Bucket("k"), "2", "v2"},
		{Bucket("k1"), "", "v1"},
	}
	for _, tt := range tests {
		got, _ := tt.b.NewGetter(m).Get([]byte(tt.key))
		assert.Equal(t, tt.want, string(got), "bucket %q key %q", tt.b, tt.key)
	}
}

func TestBucket_GetterHas(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want bool
	}{
		{Bucket(""), "k1", true},
		{Bucket(""), "k2", true},
		{Bucket("k"), "k1", false},
		{Bucket("k"), "1", true},
		{Bucket("k"), "2", true},
		{Bucket("k1"), "", true},
	}
	for _, tt := range tests {
		got, _ := tt.b.NewGetter(m).Has([]byte(tt.key))
		assert.Equal(t, tt.want, got, "bucket %q key %q", tt.b, tt.key)
	}
}

func TestBucket_Store(t *testing.T) {
	m := mem{"other": "x"}
	store := Bucket("b.").NewStore(m)

	assert.Nil(t, store.Put([]byte("1"), []byte("v1")))
	assert.Nil(t, store.Batch(func(w PutFlusher) error {
		if err := w.Put([]byte("2"), []byte("v2")); err != nil {
			return err
		}
		if err := w.Put([]byte("3"), []byte("v3")); err != nil {
			return err
		}
		return w.Flush()
	}))
	assert.Nil(t, store.Delete([]byte("3")))

	assert.Equal(t, "v1", m["b.1"])
	assert.Equal(t, "v2", m["b.2"])

	_, err := store.Get([]byte("3"))
	assert.True(t, store.IsNotFound(err))

	assert.Nil(t, store.Snapshot(func(g Getter) error {
		v, err := g.Get([]byte("2"))
		assert.Equal(t, "v2", string(v))
		return err
	}))

	var keys []string
	assert.Nil(t, store.Iterate(Range{}, func(p Pair) bool {
		keys = append(keys, string(p.Key()))
		return true
	}))
	assert.Equal(t, []string{"1", "2"}, keys)
}
