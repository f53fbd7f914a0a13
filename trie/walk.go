// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"github.com/vechain/blockexec/thor"
)

// WalkFunc is called for each stored node reached by Walk.
// Returning false skips the subtree below the node.
type WalkFunc func(hash thor.Bytes32) bool

// LeafFunc is called for each leaf reached by Walk.
type LeafFunc func(key, value []byte) error

// Walk traverses the committed trie rooted at the root it was created or
// last committed with, in depth-first order. Nodes embedded into their
// parent are not reported to onNode since they are not stored alone.
// onLeaf is optional.
func (t *Trie) Walk(onNode WalkFunc, onLeaf LeafFunc) error {
	if t.originalRoot.IsZero() || t.originalRoot == emptyRoot {
		return nil
	}
	return t.walk(hashNode(t.originalRoot.Bytes()), nil, onNode, onLeaf)
}

func (t *Trie) walk(n node, path []byte, onNode WalkFunc, onLeaf LeafFunc) error {
	switch n := n.(type) {
	case nil:
		return nil
	case hashNode:
		if !onNode(thor.BytesToBytes32(n)) {
			return nil
		}
		rn, err := t.resolveHash(n, path)
		if err != nil {
			return err
		}
		return t.walk(rn, path, onNode, onLeaf)
	case *shortNode:
		return t.walk(n.Val, concat(path, n.Key...), onNode, onLeaf)
	case *fullNode:
		for i, child := range &n.Children {
			if err := t.walk(child, concat(path, byte(i)), onNode, onLeaf); err != nil {
				return err
			}
		}
		return nil
	case valueNode:
		if onLeaf != nil {
			return onLeaf(hexToKeybytes(path), n)
		}
		return nil
	default:
		return nil
	}
}
