// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain builds an in-memory chain with funded dev accounts and native
// contracts, for tests.
package testchain

import (
	"math/big"

	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/contract"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/packer"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
	"github.com/vechain/blockexec/vm"
)

// Addresses of the native contracts deployed in genesis.
var (
	EchoAddr    = thor.BytesToAddress([]byte("echo"))
	CounterAddr = thor.BytesToAddress([]byte("counter"))
	StoreAddr   = thor.BytesToAddress([]byte("store"))
	RevertAddr  = thor.BytesToAddress([]byte("reverter"))
)

// Chain represents the blockchain structure.
type Chain struct {
	db           *muxdb.MuxDB
	genesis      *genesis.Genesis
	repo         *chain.Repository
	stater       *state.Stater
	executor     *runtime.Executor
	packer       *packer.Packer
	genesisBlock *block.Block
}

// CreateGenesis creates a genesis with all dev accounts funded and the native contracts deployed.
func CreateGenesis() (*genesis.Genesis, error) {
	return genesis.New("testchain", new(genesis.Builder).
		GasLimit(thor.InitialGasLimit).
		Timestamp(1526400000).
		Coinbase(genesis.DevAccounts()[0].Address).
		State(func(st *state.State) error {
			for _, a := range genesis.DevAccounts() {
				if err := st.SetBalance(a.Address, genesis.DevAccountBalance); err != nil {
					return err
				}
			}
			for addr, code := range map[thor.Address][]byte{
				EchoAddr:    vm.EchoCode,
				CounterAddr: vm.CounterCode,
				StoreAddr:   vm.StoreCode,
				RevertAddr:  vm.RevertCode,
			} {
				if err := st.SetCode(addr, code); err != nil {
					return err
				}
			}
			return nil
		}))
}

// New creates a Chain on an in-memory db.
func New() (*Chain, error) {
	gene, err := CreateGenesis()
	if err != nil {
		return nil, err
	}

	db := muxdb.NewMem()
	stater := state.NewStater(db)
	geneBlk, err := gene.Build(stater)
	if err != nil {
		return nil, err
	}
	repo, err := chain.NewRepository(db, geneBlk)
	if err != nil {
		return nil, err
	}
	executor := runtime.New(vm.NewBuiltin())

	return &Chain{
		db:           db,
		genesis:      gene,
		repo:         repo,
		stater:       stater,
		executor:     executor,
		packer:       packer.New(repo, db, executor, genesis.DevAccounts()[0].Address, 0),
		genesisBlock: geneBlk,
	}, nil
}

func (c *Chain) DB() *muxdb.MuxDB { return c.db }
func (c *Chain) Genesis() *genesis.Genesis { return c.genesis }
func (c *Chain) Repo() *chain.Repository { return c.repo }
func (c *Chain) Stater() *state.Stater { return c.stater }
func (c *Chain) Executor() *runtime.Executor { return c.executor }
func (c *Chain) Packer() *packer.Packer { return c.packer }
func (c *Chain) GenesisBlock() *block.Block { return c.genesisBlock }
func (c *Chain) Simulator() *contract.Simulator { return contract.NewSimulator(c.executor) }

// BestState returns the state at the end of the best block.
func (c *Chain) BestState() (*state.State, error) {
	return c.stater.NewState(c.repo.BestBlockSummary().Header.StateRoot())
}

// NewTx builds and signs a tx from the dev account, with the nonce of the best state
// plus offset.
func (c *Chain) NewTx(from genesis.DevAccount, offset uint64, to *thor.Address, value *big.Int, data []byte) (*tx.Transaction, error) {
	st, err := c.BestState()
	if err != nil {
		return nil, err
	}
	nonce, err := st.GetNonce(from.Address)
	if err != nil {
		return nil, err
	}
	builder := tx.NewBuilder().
		Nonce(nonce + offset).
		GasPrice(thor.DefaultGasPrice).
		Gas(100000).
		To(to).
		Data(data)
	if value != nil {
		builder.Value(value)
	}
	return tx.Sign(builder.Build(), from.Signer)
}

// MintBlock packs the txs into a new best block. The txs must all be adoptable.
func (c *Chain) MintBlock(txs ...*tx.Transaction) (*block.Block, tx.Receipts, error) {
	pool := &listPool{txs: txs}
	blk, receipts, err := c.packer.Pack(pool, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(pool.txs) > 0 {
		return nil, nil, errNotAdopted(pool.txs[0].ID())
	}
	return blk, receipts, nil
}

// Pending runs fn against the block state on top of the best block.
func (c *Chain) Pending(fn func(bs *blockstate.BlockState) error) error {
	return c.packer.Pending(fn)
}
