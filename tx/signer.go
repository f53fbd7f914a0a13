// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"fmt"

	"github.com/vechain/blockexec/cry"
)

// MustSign signs a transaction using the provided signer.
// It panics if the signing process fails, returning a signed transaction upon success.
func MustSign(tx *Transaction, signer *cry.Signer) *Transaction {
	trx, err := Sign(tx, signer)
	if err != nil {
		panic(err)
	}
	return trx
}

// Sign signs a transaction using the provided signer.
// It returns the signed transaction or an error if the signing process fails.
func Sign(tx *Transaction, signer *cry.Signer) (*Transaction, error) {
	// Generate the signature for the transaction's signing hash.
	sig, err := signer.Sign(tx.SigningHash())
	if err != nil {
		return nil, fmt.Errorf("unable to sign transaction: %w", err)
	}

	// Attach the signature to the transaction and return the signed transaction.
	return tx.WithSignature(sig), nil
}
