// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package thorclient is the client of the node api.
package thorclient

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/blockexec/api/accounts"
	"github.com/vechain/blockexec/api/blocks"
	"github.com/vechain/blockexec/api/transactions"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/thorclient/httpclient"
	"github.com/vechain/blockexec/tx"
)

const BestRevision = "best"

type Client struct {
	httpConn *httpclient.Client
}

func New(url string) *Client {
	return &Client{
		httpConn: httpclient.New(url),
	}
}

type Option func(*getOptions)

type getOptions struct {
	revision string
}

func applyOptions(opts []Option) *getOptions {
	options := &getOptions{
		revision: BestRevision,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

func Revision(revision string) Option {
	return func(o *getOptions) {
		o.revision = revision
	}
}

func (c *Client) RawHTTPClient() *httpclient.Client {
	return c.httpConn
}

func (c *Client) Account(addr *thor.Address, opts ...Option) (*accounts.Account, error) {
	options := applyOptions(opts)
	return c.httpConn.GetAccount(addr, options.revision)
}

func (c *Client) AccountCode(addr *thor.Address, opts ...Option) (*accounts.GetCodeResult, error) {
	options := applyOptions(opts)
	return c.httpConn.GetAccountCode(addr, options.revision)
}

func (c *Client) Storage(addr *thor.Address, key *thor.Bytes32, opts ...Option) (*accounts.GetStorageResult, error) {
	options := applyOptions(opts)
	return c.httpConn.GetAccountStorage(addr, key, options.revision)
}

// Call simulates the call on the pending block. A nil to means contract creation.
func (c *Client) Call(to *thor.Address, calldata *accounts.CallData) (*accounts.CallResult, error) {
	return c.httpConn.CallContract(to, calldata)
}

func (c *Client) SendTransaction(tx *tx.Transaction) (*transactions.SendTxResult, error) {
	rlpTx, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return nil, fmt.Errorf("unable to encode transaction - %w", err)
	}
	return c.SendTransactionRaw(rlpTx)
}

func (c *Client) SendTransactionRaw(rlpTx []byte) (*transactions.SendTxResult, error) {
	return c.httpConn.SendTransaction(&transactions.RawTx{Raw: hexutil.Encode(rlpTx)})
}

// Transact signs a tx with the nonce of key's account in the best block, and sends it.
func (c *Client) Transact(key *cry.Signer, to *thor.Address, value *big.Int, data []byte, gas uint64, gasPrice *big.Int) (*tx.Transaction, error) {
	origin := key.Address()
	account, err := c.Account(&origin)
	if err != nil {
		return nil, err
	}
	builder := tx.NewBuilder().
		Nonce(uint64(account.Nonce)).
		Gas(gas).
		To(to).
		Data(data)
	if value != nil {
		builder.Value(value)
	}
	if gasPrice != nil {
		builder.GasPrice(gasPrice)
	}
	trx, err := tx.Sign(builder.Build(), key)
	if err != nil {
		return nil, err
	}
	if _, err := c.SendTransaction(trx); err != nil {
		return nil, err
	}
	return trx, nil
}

func (c *Client) PendingTransaction(id *thor.Bytes32) (*transactions.Transaction, error) {
	return c.httpConn.GetPendingTransaction(id)
}

func (c *Client) Block(revision string) (*blocks.JSONCollapsedBlock, error) {
	return c.httpConn.GetBlock(revision)
}

func (c *Client) ExpandedBlock(revision string) (*blocks.JSONExpandedBlock, error) {
	return c.httpConn.GetBlockExpanded(revision)
}

// Balance is a shortcut of the account balance in the best block.
func (c *Client) Balance(addr *thor.Address) (*big.Int, error) {
	account, err := c.Account(addr)
	if err != nil {
		return nil, err
	}
	if account.Balance == nil {
		return new(big.Int), nil
	}
	return (*big.Int)(account.Balance), nil
}

// CallData builds call data from raw values.
func CallData(caller *thor.Address, value *big.Int, data []byte, gas uint64) *accounts.CallData {
	cd := &accounts.CallData{
		Gas:    gas,
		Caller: caller,
	}
	if value != nil {
		cd.Value = (*math.HexOrDecimal256)(value)
	}
	if len(data) > 0 {
		cd.Data = hexutil.Encode(data)
	}
	return cd
}
