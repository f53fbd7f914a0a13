// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"gopkg.in/yaml.v3"
)

// CustomGenesis is user customized genesis. JSON documents are accepted as well,
// since they are valid YAML.
type CustomGenesis struct {
	LaunchTime uint64    `yaml:"launchTime"`
	GasLimit   uint64    `yaml:"gasLimit"`
	Coinbase   string    `yaml:"coinbase"`
	ExtraData  string    `yaml:"extraData"`
	Accounts   []Account `yaml:"accounts"`
}

// Account is the account will set to the genesis block
type Account struct {
	Address string            `yaml:"address"`
	Balance string            `yaml:"balance"` // decimal or 0x prefixed hex
	Code    string            `yaml:"code,omitempty"`
	Storage map[string]string `yaml:"storage,omitempty"`
}

// LoadCustomGenesis loads the custom genesis from file.
func LoadCustomGenesis(path string) (*CustomGenesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	var gen CustomGenesis
	if err := yaml.Unmarshal(data, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis file")
	}
	return &gen, nil
}

// NewCustomNet create custom network genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	if gen.GasLimit == 0 {
		gen.GasLimit = thor.InitialGasLimit
	}
	if gen.GasLimit < thor.MinGasLimit {
		return nil, fmt.Errorf("gasLimit must not be less than %v", thor.MinGasLimit)
	}

	var coinbase thor.Address
	if gen.Coinbase != "" {
		addr, err := thor.ParseAddress(gen.Coinbase)
		if err != nil {
			return nil, errors.Wrap(err, "coinbase")
		}
		coinbase = addr
	}

	type alloc struct {
		addr    thor.Address
		balance *big.Int
		code    []byte
		storage map[thor.Bytes32]thor.Bytes32
	}
	allocs := make([]alloc, 0, len(gen.Accounts))
	for _, a := range gen.Accounts {
		addr, err := thor.ParseAddress(a.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid account address %q", a.Address)
		}
		balance, ok := math.ParseBig256(a.Balance)
		if !ok || balance.Sign() < 0 {
			return nil, fmt.Errorf("%s: balance must be a non-negative integer", addr)
		}
		var code []byte
		if len(a.Code) > 0 {
			if code, err = hexutil.Decode(a.Code); err != nil {
				return nil, fmt.Errorf("invalid contract code for address: %s", addr)
			}
		}
		storage := make(map[thor.Bytes32]thor.Bytes32, len(a.Storage))
		for k, v := range a.Storage {
			key, err := thor.ParseBytes32(k)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid storage key %q", addr, k)
			}
			value, err := thor.ParseBytes32(v)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid storage value %q", addr, v)
			}
			storage[key] = value
		}
		allocs = append(allocs, alloc{addr, balance, code, storage})
	}

	builder := new(Builder).
		Timestamp(gen.LaunchTime).
		GasLimit(gen.GasLimit).
		Coinbase(coinbase).
		State(func(state *state.State) error {
			for _, a := range allocs {
				if err := state.SetBalance(a.addr, a.balance); err != nil {
					return err
				}
				if len(a.code) > 0 {
					if err := state.SetCode(a.addr, a.code); err != nil {
						return err
					}
				}
				for k, v := range a.storage {
					if err := state.SetStorage(a.addr, k, v); err != nil {
						return err
					}
				}
			}
			return nil
		})

	if len(gen.ExtraData) > 0 {
		if len(gen.ExtraData) > 28 {
			return nil, errors.New("extraData must not be longer than 28 bytes")
		}
		var extra [28]byte
		copy(extra[:], gen.ExtraData)
		builder.ExtraData(extra)
	}

	id, err := builder.ComputeID()
	if err != nil {
		return nil, err
	}
	return &Genesis{builder, id, "customnet"}, nil
}
