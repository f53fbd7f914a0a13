// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/stackedmap"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
)

const codeStoreName = "state.code"

// ErrInvalidSnapshot is returned when the trie nodes behind a root are no longer retained.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Cause returns the underlying error.
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the world state.
type State struct {
	db    *muxdb.MuxDB
	root  thor.Bytes32                   // the last committed root
	trie  *trie.Trie                     // the accounts trie reader
	cache map[thor.Address]*cachedObject // cache of accounts trie
	sm    *stackedmap.StackedMap         // keeps revisions of accounts state
}

// New create state object on the given root.
// ErrInvalidSnapshot is returned if the root is not retained in db.
func New(db *muxdb.MuxDB, root thor.Bytes32) (*State, error) {
	if root.IsZero() {
		root = thor.EmptyRoot
	}
	state := State{db: db}
	if err := state.reset(root, nil); err != nil {
		return nil, err
	}
	return &state, nil
}

// reset re-bases the state on root, dropping the journal and caches.
// t is optional, and must be the trie of root if given.
func (s *State) reset(root thor.Bytes32, t *trie.Trie) error {
	if t == nil {
		var err error
		if t, err = s.db.NewTrie(root); err != nil {
			if trie.IsMissingNode(err) {
				return ErrInvalidSnapshot
			}
			return &Error{err}
		}
	}
	s.root = root
	s.trie = t
	s.cache = make(map[thor.Address]*cachedObject)
	s.sm = stackedmap.New(s.cacheGetter)
	return nil
}

// Checkout checkouts to another state on the same db.
func (s *State) Checkout(root thor.Bytes32) (*State, error) {
	return New(s.db, root)
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case thor.Address: // get account
		obj, err := s.getCachedObject(k)
		if err != nil {
			return nil, false, err
		}
		return &obj.data, true, nil
	case codeKey: // get code
		obj, err := s.getCachedObject(thor.Address(k))
		if err != nil {
			return nil, false, err
		}
		code, err := obj.GetCode()
		if err != nil {
			return nil, false, err
		}
		return code, true, nil
	case storageKey: // get storage
		// the address was ever deleted in the life-cycle of this state instance.
		// treat its storage as an empty set.
		if k.barrier != 0 {
			return rlp.RawValue(nil), true, nil
		}

		obj, err := s.getCachedObject(k.addr)
		if err != nil {
			return nil, false, err
		}
		v, err := obj.GetStorage(k.key)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case storageBarrierKey: // get barrier, 0 as initial value
		return 0, true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) getCachedObject(addr thor.Address) (*cachedObject, error) {
	if co, ok := s.cache[addr]; ok {
		return co, nil
	}
	a, err := loadAccount(s.trie, addr)
	if err != nil {
		return nil, err
	}
	co := newCachedObject(s.db, a)
	s.cache[addr] = co
	return co, nil
}

// getAccount gets account by address. the returned account should not be modified.
func (s *State) getAccount(addr thor.Address) (*Account, error) {
	v, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

// getAccountCopy get a copy of account by address.
func (s *State) getAccountCopy(addr thor.Address) (Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return Account{}, err
	}
	return *acc, nil
}

func (s *State) updateAccount(addr thor.Address, acc *Account) {
	s.sm.Put(addr, acc)
}

func (s *State) getStorageBarrier(addr thor.Address) (int, error) {
	b, _, err := s.sm.Get(storageBarrierKey(addr))
	if err != nil {
		return 0, err
	}
	return b.(int), nil
}

func (s *State) setStorageBarrier(addr thor.Address, barrier int) {
	s.sm.Put(storageBarrierKey(addr), barrier)
}

// GetBalance returns balance for the given address.
func (s *State) GetBalance(addr thor.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return new(big.Int).Set(acc.Balance), nil
}

// SetBalance set balance for the given address.
func (s *State) SetBalance(addr thor.Address, balance *big.Int) error {
	if balance.Sign() < 0 {
		return &Error{errors.New("negative balance")}
	}
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance = new(big.Int).Set(balance)
	s.updateAccount(addr, &cpy)
	return nil
}

// GetNonce returns the nonce of the given address. It's 0 for unknown accounts.
func (s *State) GetNonce(addr thor.Address) (uint64, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return 0, &Error{err}
	}
	return acc.Nonce, nil
}

// SetNonce set nonce for the given address.
func (s *State) SetNonce(addr thor.Address, nonce uint64) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Nonce = nonce
	s.updateAccount(addr, &cpy)
	return nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
// A zero value deletes the key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) error {
	if value.IsZero() {
		return s.SetRawStorage(addr, key, nil)
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	return s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	barrier, err := s.getStorageBarrier(addr)
	if err != nil {
		return nil, &Error{err}
	}
	data, _, err := s.sm.Get(storageKey{addr, barrier, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) error {
	barrier, err := s.getStorageBarrier(addr)
	if err != nil {
		return &Error{err}
	}
	s.sm.Put(storageKey{addr, barrier, key}, raw)
	return nil
}

// GetCode returns code for the given address.
func (s *State) GetCode(addr thor.Address) ([]byte, error) {
	v, _, err := s.sm.Get(codeKey(addr))
	if err != nil {
		return nil, &Error{err}
	}
	return v.([]byte), nil
}

// GetCodeHash returns code hash for the given address.
func (s *State) GetCodeHash(addr thor.Address) (thor.Bytes32, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	return thor.BytesToBytes32(acc.CodeHash), nil
}

// SetCode set code for the given address.
func (s *State) SetCode(addr thor.Address, code []byte) error {
	var codeHash []byte
	if len(code) > 0 {
		s.sm.Put(codeKey(addr), code)
		codeHash = thor.Keccak256(code).Bytes()
	} else {
		s.sm.Put(codeKey(addr), []byte(nil))
	}
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.CodeHash = codeHash
	s.updateAccount(addr, &cpy)
	return nil
}

// Exists returns whether an account exists at the given address.
// See Account.IsEmpty()
func (s *State) Exists(addr thor.Address) (bool, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return false, &Error{err}
	}
	return !acc.IsEmpty(), nil
}

// Delete delete an account at the given address.
// That's set nonce, balance and code to zero value, and drop the storage.
func (s *State) Delete(addr thor.Address) error {
	barrier, err := s.getStorageBarrier(addr)
	if err != nil {
		return &Error{err}
	}
	s.sm.Put(codeKey(addr), []byte(nil))
	s.updateAccount(addr, emptyAccount())
	// increase the barrier value
	s.setStorageBarrier(addr, barrier+1)
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Root returns the root of the last committed state.
// Uncommitted changes are not reflected.
func (s *State) Root() thor.Bytes32 {
	return s.root
}

// Dirty returns whether there are uncommitted changes.
func (s *State) Dirty() bool {
	dirty := false
	s.sm.Journal(func(any, any) bool {
		dirty = true
		return false
	})
	return dirty
}

// Revert re-bases the state on the given committed root, dropping all
// uncommitted changes. ErrInvalidSnapshot is returned if the root is not retained.
func (s *State) Revert(root thor.Bytes32) error {
	if root.IsZero() {
		root = thor.EmptyRoot
	}
	ok, err := s.db.HasTrieNode(root)
	if err != nil {
		return &Error{err}
	}
	if !ok {
		return ErrInvalidSnapshot
	}
	return s.reset(root, nil)
}

// Commit commits all changes and re-bases the state on the new root.
func (s *State) Commit() (thor.Bytes32, error) {
	stage, err := s.Stage()
	if err != nil {
		return thor.Bytes32{}, err
	}
	root, err := stage.Commit()
	if err != nil {
		return thor.Bytes32{}, err
	}
	if err := s.reset(root, stage.accountTrie); err != nil {
		return thor.Bytes32{}, err
	}
	return root, nil
}

// BuildStorageTrie build up storage trie for given address with cumulative changes.
func (s *State) BuildStorageTrie(addr thor.Address) (t *trie.Trie, err error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}

	if t, err = s.db.NewTrie(thor.BytesToBytes32(acc.StorageRoot)); err != nil {
		return nil, &Error{err}
	}

	barrier, err := s.getStorageBarrier(addr)
	if err != nil {
		return nil, &Error{err}
	}

	// traverse journal to filter out storage changes for addr
	s.sm.Journal(func(k, v any) bool {
		switch key := k.(type) {
		case storageKey:
			if key.barrier == barrier && key.addr == addr {
				err = saveStorage(t, key.key, v.(rlp.RawValue))
				if err != nil {
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, &Error{err}
	}
	return t, nil
}

// Stage makes a stage object to compute hash of trie or commit all changes.
func (s *State) Stage() (*Stage, error) {
	type changed struct {
		data            Account
		storage         map[thor.Bytes32]rlp.RawValue
		baseStorageTrie *trie.Trie
	}

	var (
		changes = make(map[thor.Address]*changed)
		codes   = make(map[thor.Bytes32][]byte)
	)

	// get or create changed account
	getChanged := func(addr thor.Address) (*changed, error) {
		if obj, ok := changes[addr]; ok {
			return obj, nil
		}
		co, err := s.getCachedObject(addr)
		if err != nil {
			return nil, err
		}

		c := &changed{data: co.data, baseStorageTrie: co.cache.storageTrie}
		changes[addr] = c
		return c, nil
	}

	var jerr error
	// traverse journal to build changes
	s.sm.Journal(func(k, v any) bool {
		var c *changed
		switch key := k.(type) {
		case thor.Address:
			if c, jerr = getChanged(key); jerr != nil {
				return false
			}
			c.data = *(v.(*Account))
		case codeKey:
			code := v.([]byte)
			if len(code) > 0 {
				codes[thor.Keccak256(code)] = code
			}
		case storageKey:
			if c, jerr = getChanged(key.addr); jerr != nil {
				return false
			}
			if c.storage == nil {
				c.storage = make(map[thor.Bytes32]rlp.RawValue)
			}
			c.storage[key.key] = v.(rlp.RawValue)
		case storageBarrierKey:
			if c, jerr = getChanged(thor.Address(key)); jerr != nil {
				return false
			}
			// discard all storage updates and base storage trie when meet the barrier.
			c.storage = nil
			c.baseStorageTrie = nil
			c.data.StorageRoot = nil
		}
		return true
	})
	if jerr != nil {
		return nil, &Error{jerr}
	}

	accountTrie := s.trie.Copy()
	storageTries := make([]*trie.Trie, 0, len(changes))

	for addr, c := range changes {
		// skip storage changes if account is empty
		if !c.data.IsEmpty() && len(c.storage) > 0 {
			var (
				sTrie *trie.Trie
				err   error
			)
			if c.baseStorageTrie != nil {
				sTrie = c.baseStorageTrie.Copy()
			} else if sTrie, err = s.db.NewTrie(thor.BytesToBytes32(c.data.StorageRoot)); err != nil {
				return nil, &Error{err}
			}
			for k, v := range c.storage {
				if err := saveStorage(sTrie, k, v); err != nil {
					return nil, &Error{err}
				}
			}
			if sRoot := sTrie.Hash(); sRoot == thor.EmptyRoot {
				c.data.StorageRoot = nil
			} else {
				c.data.StorageRoot = sRoot.Bytes()
				storageTries = append(storageTries, sTrie)
			}
		}
		if err := saveAccount(accountTrie, addr, &c.data); err != nil {
			return nil, &Error{err}
		}
	}

	return &Stage{
		db:           s.db,
		accountTrie:  accountTrie,
		storageTries: storageTries,
		codes:        codes,
	}, nil
}

type (
	storageKey struct {
		addr    thor.Address
		barrier int
		key     thor.Bytes32
	}
	codeKey           thor.Address
	storageBarrierKey thor.Address
)
