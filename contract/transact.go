// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contract

import (
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

var logger = log.WithContext("pkg", "contract")

// Pool admits txs for inclusion and broadcast.
type Pool interface {
	AddTransaction(trx *tx.Transaction, origin *thor.Address, forceBroadcast bool) error
}

// Transact builds a tx to the recipient to, signs it with key and hands it to the pool.
// to may be blank for contract creation. The nonce is the sender's nonce in bs, and the sender
// defaults to the address of key.
//
// A tx invalid against bs is not admitted, and the *runtime.InvalidTxError is returned.
// bs is never mutated.
func Transact(bs *blockstate.BlockState, to any, key *cry.Signer, pool Pool, opts ...Option) (*tx.Transaction, error) {
	p, err := newParams(opts)
	if err != nil {
		return nil, err
	}
	sender := key.Address()
	if p.sender != nil {
		sender = *p.sender
	}
	recipient, err := thor.NormalizeAddress(to, true)
	if err != nil {
		return nil, errors.WithMessage(err, "recipient")
	}

	nonce, err := bs.GetNonce(sender)
	if err != nil {
		return nil, err
	}
	trx, err := tx.Sign(tx.NewBuilder().
		Nonce(nonce).
		GasPrice(p.gasPrice).
		Gas(p.startGas).
		To(recipient).
		Value(p.value).
		Data(p.data).
		Build(), key)
	if err != nil {
		return nil, err
	}

	if signer, err := trx.Sender(); err != nil {
		return nil, err
	} else if signer != sender {
		return nil, errors.WithMessagef(ErrSenderMismatch, "want %v, got %v", sender, signer)
	}

	if _, err := runtime.ResolveTransaction(bs, trx); err != nil {
		return nil, err
	}
	if err := pool.AddTransaction(trx, nil, true); err != nil {
		return nil, err
	}
	logger.Debug("tx submitted", "id", trx.ID(), "sender", sender, "nonce", nonce)
	return trx, nil
}
