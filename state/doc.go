// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the main accounts trie.
// It follows the flow as bellow:
//
//	           o
//	           |
//	  [ revertable state ]
//	           |
//	    [ stacked map ] -> [ journal ] -> [ playback(staging) ] -> [ updated trie ]
//	           |
//	     [ trie cache ]
//	           |
//	    [ read-only trie ]
//
// Changes are committed at the end of every transaction, so the root of
// the accounts trie is always a complete fingerprint of the state, and
// reverting to it only needs the trie nodes to be still retained.
//
// An important difference with ethereum's statedb is the logic of account deletion.
// Deleting an account raises a storage barrier, after which all storage of the
// account reads as empty, regardless of what's in the storage trie.
package state
