// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/vechain/blockexec/thor"
)

// Builder to make it easy to build transaction.
type Builder struct {
	body body
}

// NewBuilder creates a builder with zero gas price and value.
func NewBuilder() *Builder {
	return &Builder{body: body{GasPrice: &big.Int{}, Value: &big.Int{}}}
}

// Nonce set nonce.
func (b *Builder) Nonce(nonce uint64) *Builder {
	b.body.Nonce = nonce
	return b
}

// GasPrice set gas price.
func (b *Builder) GasPrice(price *big.Int) *Builder {
	if price == nil {
		b.body.GasPrice = &big.Int{}
	} else {
		b.body.GasPrice = new(big.Int).Set(price)
	}
	return b
}

// Gas set gas provision for tx.
func (b *Builder) Gas(gas uint64) *Builder {
	b.body.Gas = gas
	return b
}

// To set the recipient. nil means contract creation.
func (b *Builder) To(to *thor.Address) *Builder {
	if to == nil {
		b.body.To = nil
	} else {
		cpy := *to
		b.body.To = &cpy
	}
	return b
}

// Value set the amount to transfer.
func (b *Builder) Value(value *big.Int) *Builder {
	if value == nil {
		b.body.Value = &big.Int{}
	} else {
		b.body.Value = new(big.Int).Set(value)
	}
	return b
}

// Data set the data payload.
func (b *Builder) Data(data []byte) *Builder {
	b.body.Data = append([]byte(nil), data...)
	return b
}

// Build build tx object.
func (b *Builder) Build() *Transaction {
	tx := Transaction{body: b.body}
	if tx.body.GasPrice == nil {
		tx.body.GasPrice = &big.Int{}
	}
	if tx.body.Value == nil {
		tx.body.Value = &big.Int{}
	}
	return &tx
}
