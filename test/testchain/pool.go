// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// listPool feeds the packer with a fixed list of txs.
type listPool struct {
	txs tx.Transactions
}

func (p *listPool) Executables() tx.Transactions {
	return p.txs
}

func (p *listPool) Remove(txID thor.Bytes32) bool {
	for i, trx := range p.txs {
		if trx.ID() == txID {
			p.txs = append(p.txs[:i:i], p.txs[i+1:]...)
			return true
		}
	}
	return false
}

func errNotAdopted(id thor.Bytes32) error {
	return errors.Errorf("tx %v not adopted", id)
}
