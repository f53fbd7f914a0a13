// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"github.com/qianbin/drlp"
	"github.com/vechain/blockexec/thor"
)

// see "github.com/ethereum/go-ethereum/types/derive_sha.go"

// DerivableList is the list of items to derive the root from.
type DerivableList interface {
	Len() int
	GetRlp(i int) []byte
}

// IndexKey returns the trie key of the i-th item of a derivable list.
func IndexKey(i int) []byte {
	return drlp.AppendUint(nil, uint64(i))
}

// DeriveRoot computes the root of a trie that maps the rlp encoded index
// to the rlp encoded item, without persisting any node.
func DeriveRoot(list DerivableList) thor.Bytes32 {
	var (
		trie Trie
		key  []byte
	)

	for i := range list.Len() {
		key = drlp.AppendUint(key[:0], uint64(i))
		// a trie without db never fails on update
		_ = trie.Update(key, list.GetRlp(i))
	}

	return trie.Hash()
}
