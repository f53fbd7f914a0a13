// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contract provides the helpers to transact to, or call against a block state.
//
// Transact builds, signs and submits a tx to a pool. Call simulates a tx on an ephemeral copy of
// a block state, leaving the block state untouched.
package contract

import (
	"math/big"

	"github.com/vechain/blockexec/thor"
)

// Option customizes the tx built by Transact and Call.
type Option func(p *params) error

type params struct {
	sender   *thor.Address
	gasPrice *big.Int
	value    *big.Int
	data     []byte
	startGas uint64
}

func newParams(opts []Option) (*params, error) {
	p := &params{
		gasPrice: thor.DefaultGasPrice,
		value:    new(big.Int),
		startGas: thor.DefaultStartGas,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// WithSender sets the sender. v can be anything thor.NormalizeAddress accepts, except blank.
func WithSender(v any) Option {
	return func(p *params) error {
		addr, err := thor.NormalizeAddress(v, false)
		if err != nil {
			return err
		}
		p.sender = addr
		return nil
	}
}

// WithGasPrice sets the gas price. Defaults to thor.DefaultGasPrice.
func WithGasPrice(price *big.Int) Option {
	return func(p *params) error {
		if price == nil || price.Sign() < 0 {
			return errInvalidParam("gas price")
		}
		p.gasPrice = price
		return nil
	}
}

// WithValue sets the amount to transfer. Defaults to zero.
func WithValue(value *big.Int) Option {
	return func(p *params) error {
		if value == nil || value.Sign() < 0 {
			return errInvalidParam("value")
		}
		p.value = value
		return nil
	}
}

// WithData sets the data payload.
func WithData(data []byte) Option {
	return func(p *params) error {
		p.data = data
		return nil
	}
}

// WithStartGas sets the gas provision. Defaults to thor.DefaultStartGas.
// For Call, zero means all the gas left in the block.
func WithStartGas(gas uint64) Option {
	return func(p *params) error {
		p.startGas = gas
		return nil
	}
}
