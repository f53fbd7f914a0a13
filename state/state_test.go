// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
)

func newState(t *testing.T) (*muxdb.MuxDB, *State) {
	db := muxdb.NewMem()
	st, err := New(db, thor.Bytes32{})
	require.NoError(t, err)
	return db, st
}

func TestStateReadWrite(t *testing.T) {
	_, st := newState(t)

	addr := thor.BytesToAddress([]byte("account1"))
	storageKey := thor.BytesToBytes32([]byte("storageKey"))

	ok, err := st.Exists(addr)
	require.NoError(t, err)
	assert.False(t, ok)

	bal, _ := st.GetBalance(addr)
	assert.Equal(t, 0, bal.Sign())
	nonce, err := st.GetNonce(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
	code, _ := st.GetCode(addr)
	assert.Empty(t, code)
	v, _ := st.GetStorage(addr, storageKey)
	assert.Equal(t, thor.Bytes32{}, v)

	// make account not empty
	require.NoError(t, st.SetBalance(addr, big.NewInt(1)))
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, big.NewInt(1), bal)
	ok, _ = st.Exists(addr)
	assert.True(t, ok)

	require.NoError(t, st.SetNonce(addr, 7))
	nonce, _ = st.GetNonce(addr)
	assert.Equal(t, uint64(7), nonce)

	require.NoError(t, st.SetCode(addr, []byte("code")))
	code, _ = st.GetCode(addr)
	assert.Equal(t, []byte("code"), code)
	codeHash, _ := st.GetCodeHash(addr)
	assert.Equal(t, thor.Keccak256([]byte("code")), codeHash)

	require.NoError(t, st.SetStorage(addr, storageKey, thor.BytesToBytes32([]byte("storageValue"))))
	v, _ = st.GetStorage(addr, storageKey)
	assert.Equal(t, thor.BytesToBytes32([]byte("storageValue")), v)

	assert.Error(t, st.SetBalance(addr, big.NewInt(-1)))

	// delete account
	require.NoError(t, st.Delete(addr))
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, 0, bal.Sign())
	code, _ = st.GetCode(addr)
	assert.Empty(t, code)
	v, _ = st.GetStorage(addr, storageKey)
	assert.Equal(t, thor.Bytes32{}, v, "storage should be cleared after account deleted")
	ok, _ = st.Exists(addr)
	assert.False(t, ok)
}

func TestStateRevertTo(t *testing.T) {
	_, st := newState(t)
	addr := thor.BytesToAddress([]byte("account1"))
	storageKey := thor.BytesToBytes32([]byte("storageKey"))

	values := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	revisions := make([]int, 0, len(values))
	for _, v := range values {
		revisions = append(revisions, st.NewCheckpoint())
		st.SetBalance(addr, v)
		st.SetStorage(addr, storageKey, thor.BytesToBytes32(v.Bytes()))
	}

	for i := len(revisions) - 1; i >= 0; i-- {
		st.RevertTo(revisions[i])
		bal, _ := st.GetBalance(addr)
		stg, _ := st.GetStorage(addr, storageKey)
		if i == 0 {
			assert.Equal(t, 0, bal.Sign())
			assert.Equal(t, thor.Bytes32{}, stg)
		} else {
			assert.Equal(t, values[i-1], bal)
			assert.Equal(t, thor.BytesToBytes32(values[i-1].Bytes()), stg)
		}
	}
	assert.False(t, st.Dirty())
}

func TestStateCommit(t *testing.T) {
	db, st := newState(t)
	assert.Equal(t, thor.EmptyRoot, st.Root())

	addr1 := thor.BytesToAddress([]byte("account1"))
	addr2 := thor.BytesToAddress([]byte("account2"))
	storageKey := thor.BytesToBytes32([]byte("storageKey"))

	st.SetBalance(addr1, big.NewInt(10))
	st.SetNonce(addr1, 1)
	st.SetCode(addr2, []byte("code2"))
	st.SetStorage(addr2, storageKey, thor.BytesToBytes32([]byte("value")))
	assert.True(t, st.Dirty())

	stage, err := st.Stage()
	require.NoError(t, err)
	hash := stage.Hash()

	root, err := st.Commit()
	require.NoError(t, err)
	assert.Equal(t, hash, root)
	assert.Equal(t, root, st.Root())
	assert.False(t, st.Dirty())

	// reload from db
	st2, err := New(db, root)
	require.NoError(t, err)
	bal, _ := st2.GetBalance(addr1)
	assert.Equal(t, big.NewInt(10), bal)
	nonce, _ := st2.GetNonce(addr1)
	assert.Equal(t, uint64(1), nonce)
	code, _ := st2.GetCode(addr2)
	assert.Equal(t, []byte("code2"), code)
	v, _ := st2.GetStorage(addr2, storageKey)
	assert.Equal(t, thor.BytesToBytes32([]byte("value")), v)

	// the root is independent of how changes are split into commits
	st3, _ := New(db, thor.Bytes32{})
	st3.SetCode(addr2, []byte("code2"))
	st3.SetStorage(addr2, storageKey, thor.BytesToBytes32([]byte("value")))
	st3.Commit()
	st3.SetNonce(addr1, 1)
	st3.SetBalance(addr1, big.NewInt(10))
	root3, err := st3.Commit()
	require.NoError(t, err)
	assert.Equal(t, root, root3)

	// clearing storage restores empty storage root
	st2.SetStorage(addr2, storageKey, thor.Bytes32{})
	st2.SetCode(addr2, nil)
	st2.SetStorage(addr2, storageKey, thor.Bytes32{})
	root2, err := st2.Commit()
	require.NoError(t, err)
	st4, _ := New(db, thor.Bytes32{})
	st4.SetBalance(addr1, big.NewInt(10))
	st4.SetNonce(addr1, 1)
	root4, _ := st4.Commit()
	assert.Equal(t, root4, root2)
}

func TestStateRevert(t *testing.T) {
	db, st := newState(t)
	addr := thor.BytesToAddress([]byte("account1"))

	st.SetBalance(addr, big.NewInt(1))
	root1, err := st.Commit()
	require.NoError(t, err)

	st.SetBalance(addr, big.NewInt(2))
	root2, err := st.Commit()
	require.NoError(t, err)
	assert.NotEqual(t, root1, root2)

	// uncommitted changes are dropped as well
	st.SetBalance(addr, big.NewInt(3))
	require.NoError(t, st.Revert(root1))
	assert.Equal(t, root1, st.Root())
	bal, _ := st.GetBalance(addr)
	assert.Equal(t, big.NewInt(1), bal)

	require.NoError(t, st.Revert(root2))
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, big.NewInt(2), bal)

	require.NoError(t, st.Revert(thor.Bytes32{}))
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, 0, bal.Sign())

	err = st.Revert(thor.Blake2b([]byte("unknown")))
	assert.Equal(t, ErrInvalidSnapshot, err)

	_, err = New(db, thor.Blake2b([]byte("unknown")))
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))
}

func TestStateRevertPruned(t *testing.T) {
	db, st := newState(t)
	addr := thor.BytesToAddress([]byte("account1"))

	st.SetBalance(addr, big.NewInt(1))
	root1, _ := st.Commit()
	st.SetBalance(addr, big.NewInt(2))
	root2, _ := st.Commit()

	live := make(map[thor.Bytes32]bool)
	tr, err := db.NewTrie(root2)
	require.NoError(t, err)
	require.NoError(t, tr.Walk(func(h thor.Bytes32) bool {
		live[h] = true
		return true
	}, nil))
	_, err = db.PruneTrieNodes(context.Background(), func(h thor.Bytes32) bool { return live[h] })
	require.NoError(t, err)

	assert.Equal(t, ErrInvalidSnapshot, st.Revert(root1))
	assert.NoError(t, st.Revert(root2))
}

func TestStateOnFork(t *testing.T) {
	db, st := newState(t)
	addr := thor.BytesToAddress([]byte("account1"))
	st.SetBalance(addr, big.NewInt(1))
	root, _ := st.Commit()

	fork, err := db.Fork()
	require.NoError(t, err)
	defer fork.Close()

	fst, err := New(fork, root)
	require.NoError(t, err)
	fst.SetBalance(addr, big.NewInt(100))
	fst.SetCode(addr, []byte("fork code"))
	froot, err := fst.Commit()
	require.NoError(t, err)

	assert.Equal(t, ErrInvalidSnapshot, st.Revert(froot))
	bal, _ := st.GetBalance(addr)
	assert.Equal(t, big.NewInt(1), bal)
}

func TestBuildStorageTrie(t *testing.T) {
	_, st := newState(t)
	addr := thor.BytesToAddress([]byte("account1"))
	key := thor.BytesToBytes32([]byte("key"))

	st.SetBalance(addr, big.NewInt(1))
	st.SetStorage(addr, key, thor.BytesToBytes32([]byte("v1")))
	st.Commit()
	st.SetStorage(addr, key, thor.BytesToBytes32([]byte("v2")))

	tr, err := st.BuildStorageTrie(addr)
	require.NoError(t, err)
	stage, _ := st.Stage()
	_, err = stage.Commit()
	require.NoError(t, err)

	st2, _ := New(st.db, stage.Hash())
	acc, err := st2.getAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, tr.Hash(), thor.BytesToBytes32(acc.StorageRoot))
}
