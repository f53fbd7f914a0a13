// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpclient provides an HTTP client to interact with a block execution node.
// It offers methods to retrieve accounts, blocks and pending transactions, to simulate
// contract calls and to send transactions.
package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/api/accounts"
	"github.com/vechain/blockexec/api/blocks"
	"github.com/vechain/blockexec/api/transactions"
	"github.com/vechain/blockexec/thor"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNot200Status = errors.New("not 200 status code")
)

// Client represents the HTTP client for interacting with a node.
type Client struct {
	url string
	c   *http.Client
}

// New creates a new Client with the provided URL.
func New(url string) *Client {
	return NewWithHTTP(url, http.DefaultClient)
}

func NewWithHTTP(url string, c *http.Client) *Client {
	return &Client{
		url: url,
		c:   c,
	}
}

// GetAccount retrieves the account details for the given address at the specified revision.
func (c *Client) GetAccount(addr *thor.Address, revision string) (*accounts.Account, error) {
	body, err := c.httpGET(withRevision(c.url+"/accounts/"+addr.String(), revision))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve account - %w", err)
	}

	var account accounts.Account
	if err = json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("unable to unmarshal account - %w", err)
	}
	return &account, nil
}

// GetAccountCode retrieves the contract code for the given address at the specified revision.
func (c *Client) GetAccountCode(addr *thor.Address, revision string) (*accounts.GetCodeResult, error) {
	body, err := c.httpGET(withRevision(c.url+"/accounts/"+addr.String()+"/code", revision))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve account code - %w", err)
	}

	var res accounts.GetCodeResult
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unable to unmarshal code - %w", err)
	}
	return &res, nil
}

// GetAccountStorage retrieves the storage value for the given address and key at the specified revision.
func (c *Client) GetAccountStorage(addr *thor.Address, key *thor.Bytes32, revision string) (*accounts.GetStorageResult, error) {
	body, err := c.httpGET(withRevision(c.url+"/accounts/"+addr.String()+"/storage/"+key.String(), revision))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve account storage - %w", err)
	}

	var res accounts.GetStorageResult
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unable to unmarshal storage result - %w", err)
	}
	return &res, nil
}

// CallContract simulates a call against the pending block. A nil to means contract creation.
func (c *Client) CallContract(to *thor.Address, calldata *accounts.CallData) (*accounts.CallResult, error) {
	url := c.url + "/accounts"
	if to != nil {
		url += "/" + to.String()
	}
	body, err := c.httpPOST(url, calldata)
	if err != nil {
		return nil, fmt.Errorf("unable to call contract - %w", err)
	}

	var res accounts.CallResult
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unable to unmarshal call result - %w", err)
	}
	return &res, nil
}

// SendTransaction sends a raw transaction.
func (c *Client) SendTransaction(tx *transactions.RawTx) (*transactions.SendTxResult, error) {
	body, err := c.httpPOST(c.url+"/transactions", tx)
	if err != nil {
		return nil, fmt.Errorf("unable to send raw transaction - %w", err)
	}

	var txID transactions.SendTxResult
	if err = json.Unmarshal(body, &txID); err != nil {
		return nil, fmt.Errorf("unable to unmarshal send transaction result - %w", err)
	}
	return &txID, nil
}

// GetPendingTransaction retrieves the transaction waiting in the pool.
func (c *Client) GetPendingTransaction(txID *thor.Bytes32) (*transactions.Transaction, error) {
	body, err := c.httpGET(c.url + "/transactions/pending/" + txID.String())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve transaction - %w", err)
	}
	if isNull(body) {
		return nil, ErrNotFound
	}

	var tx transactions.Transaction
	if err = json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("unable to unmarshal transaction - %w", err)
	}
	return &tx, nil
}

// GetBlock retrieves a block by its revision.
func (c *Client) GetBlock(revision string) (*blocks.JSONCollapsedBlock, error) {
	body, err := c.httpGET(c.url + "/blocks/" + revision)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve block - %w", err)
	}
	if isNull(body) {
		return nil, ErrNotFound
	}

	var block blocks.JSONCollapsedBlock
	if err = json.Unmarshal(body, &block); err != nil {
		return nil, fmt.Errorf("unable to unmarshal block - %w", err)
	}
	return &block, nil
}

// GetBlockExpanded retrieves an expanded block, with the txs and their receipts, by its revision.
func (c *Client) GetBlockExpanded(revision string) (*blocks.JSONExpandedBlock, error) {
	body, err := c.httpGET(c.url + "/blocks/" + revision + "?expanded=true")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve expanded block - %w", err)
	}
	if isNull(body) {
		return nil, ErrNotFound
	}

	var block blocks.JSONExpandedBlock
	if err = json.Unmarshal(body, &block); err != nil {
		return nil, fmt.Errorf("unable to unmarshal expanded block - %w", err)
	}
	return &block, nil
}

func withRevision(url, revision string) string {
	if revision != "" {
		url += "?revision=" + revision
	}
	return url
}

func isNull(body []byte) bool {
	return string(bytes.TrimSpace(body)) == "null"
}

func (c *Client) httpRequest(method, url string, payload io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error - Status Code %d - %s - %w", resp.StatusCode, bytes.TrimSpace(responseBody), ErrNot200Status)
	}
	return responseBody, nil
}

func (c *Client) httpGET(url string) ([]byte, error) {
	return c.httpRequest(http.MethodGet, url, nil)
}

func (c *Client) httpPOST(url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal payload - %w", err)
	}
	return c.httpRequest(http.MethodPost, url, bytes.NewReader(data))
}
