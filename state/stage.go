// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
)

// Stage abstracts changes on the main accounts trie.
type Stage struct {
	db           *muxdb.MuxDB
	accountTrie  *trie.Trie
	storageTries []*trie.Trie
	codes        map[thor.Bytes32][]byte
}

// Hash computes hash of the main accounts trie.
func (s *Stage) Hash() thor.Bytes32 {
	return s.accountTrie.Hash()
}

// Commit commits all changes into main accounts trie and storage tries.
func (s *Stage) Commit() (root thor.Bytes32, err error) {
	err = s.db.Batch(func(w *muxdb.Writer) error {
		codeStore := w.Store(codeStoreName)
		for hash, code := range s.codes {
			if err := codeStore.Put(hash[:], code); err != nil {
				return err
			}
		}
		for _, t := range s.storageTries {
			if _, err := w.CommitTrie(t); err != nil {
				return err
			}
		}
		root, err = w.CommitTrie(s.accountTrie)
		return err
	})
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	return root, nil
}
