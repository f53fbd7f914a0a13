// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/trie"
)

// Account is the consensus representation of an account.
// RLP encoded objects are stored in main account trie.
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	CodeHash    []byte // hash of code
	StorageRoot []byte // merkle root of the storage trie
}

// IsEmpty returns if an account is empty.
// An empty account has zero nonce, zero balance and zero length code hash.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 &&
		a.Balance.Sign() == 0 &&
		len(a.CodeHash) == 0
}

func emptyAccount() *Account {
	a := Account{Balance: &big.Int{}}
	return &a
}

// loadAccount load an account object by address in trie.
// It returns empty account is no account found at the address.
func loadAccount(trie *trie.Trie, addr thor.Address) (*Account, error) {
	hashedKey := thor.Blake2b(addr[:])
	data, err := trie.Get(hashedKey[:])
	if err != nil {
		return nil, err
	}
	metricAccountCounter().AddWithLabel(1, map[string]string{"type": "account", "target": "read"})
	if len(data) == 0 {
		return emptyAccount(), nil
	}
	var a Account
	if err := rlp.DecodeBytes(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// saveAccount save account into trie at given address.
// If the given account is empty, the value for given address is deleted.
func saveAccount(trie *trie.Trie, addr thor.Address, a *Account) error {
	hashedKey := thor.Blake2b(addr[:])
	metricAccountCounter().AddWithLabel(1, map[string]string{"type": "account", "target": "write"})
	if a.IsEmpty() {
		// delete if account is empty
		return trie.Update(hashedKey[:], nil)
	}

	data, err := rlp.EncodeToBytes(a)
	if err != nil {
		return err
	}
	return trie.Update(hashedKey[:], data)
}

// loadStorage load storage data for given key.
func loadStorage(trie *trie.Trie, key thor.Bytes32) (rlp.RawValue, error) {
	hashedKey := thor.Blake2b(key[:])
	metricAccountCounter().AddWithLabel(1, map[string]string{"type": "storage", "target": "read"})
	return trie.Get(hashedKey[:])
}

// saveStorage save value for given key.
// If the data is zero, the given key will be deleted.
func saveStorage(trie *trie.Trie, key thor.Bytes32, data rlp.RawValue) error {
	hashedKey := thor.Blake2b(key[:])
	metricAccountCounter().AddWithLabel(1, map[string]string{"type": "storage", "target": "write"})
	return trie.Update(hashedKey[:], data)
}
