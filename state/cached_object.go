// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/blockexec/cache"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
)

// codes are content addressed, so the cache can be shared by all db instances.
var codeCache = cache.MustNewLRU(512)

// cachedObject to cache code and storage of an account.
type cachedObject struct {
	db   *muxdb.MuxDB
	data Account

	cache struct {
		code        []byte
		storageTrie *trie.Trie
		storage     map[thor.Bytes32]rlp.RawValue
	}
}

func newCachedObject(db *muxdb.MuxDB, data *Account) *cachedObject {
	return &cachedObject{db: db, data: *data}
}

func (co *cachedObject) getOrCreateStorageTrie() (*trie.Trie, error) {
	if co.cache.storageTrie != nil {
		return co.cache.storageTrie, nil
	}

	if len(co.data.StorageRoot) == 0 {
		return nil, nil
	}

	trie, err := co.db.NewTrie(thor.BytesToBytes32(co.data.StorageRoot))
	if err != nil {
		return nil, err
	}
	co.cache.storageTrie = trie
	return trie, nil
}

// GetStorage returns storage value for given key.
func (co *cachedObject) GetStorage(key thor.Bytes32) (rlp.RawValue, error) {
	cache := &co.cache
	// retrive from storage cache
	if cache.storage != nil {
		if v, ok := cache.storage[key]; ok {
			return v, nil
		}
	} else {
		cache.storage = make(map[thor.Bytes32]rlp.RawValue)
	}
	// not found in cache

	trie, err := co.getOrCreateStorageTrie()
	if err != nil {
		return nil, err
	}
	if trie == nil {
		return nil, nil
	}

	// load from trie
	v, err := loadStorage(trie, key)
	if err != nil {
		return nil, err
	}
	// put into cache
	cache.storage[key] = v
	return v, nil
}

// GetCode returns the code of the account.
func (co *cachedObject) GetCode() ([]byte, error) {
	cache := &co.cache

	if len(cache.code) > 0 {
		return cache.code, nil
	}

	if len(co.data.CodeHash) > 0 {
		// do have code
		code, err := codeCache.GetOrLoad(string(co.data.CodeHash), func(any) (any, error) {
			return co.db.NewStore(codeStoreName).Get(co.data.CodeHash)
		})
		if err != nil {
			return nil, err
		}
		cache.code = code.([]byte)
		return cache.code, nil
	}
	return nil, nil
}
