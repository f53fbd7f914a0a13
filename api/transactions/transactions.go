// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transactions

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/api/utils"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
	"github.com/vechain/blockexec/txpool"
)

// Pool is the tx pool behind the api.
type Pool interface {
	AddTransaction(trx *tx.Transaction, origin *thor.Address, forceBroadcast bool) error
	Get(id thor.Bytes32) *tx.Transaction
}

type Transactions struct {
	pool Pool
}

func New(pool Pool) *Transactions {
	return &Transactions{
		pool,
	}
}

func (t *Transactions) handleSendTransaction(w http.ResponseWriter, req *http.Request) error {
	var raw RawTx
	if err := utils.ParseJSON(req.Body, &raw); err != nil {
		return utils.BadRequest(err, "body")
	}
	trx, err := raw.decode()
	if err != nil {
		return utils.BadRequest(err, "raw")
	}

	if err := t.pool.AddTransaction(trx, nil, false); err != nil {
		if txpool.IsBadTx(err) {
			return utils.BadRequest(err, "bad tx")
		}
		if txpool.IsTxRejected(err) {
			return utils.Forbidden(err, "rejected tx")
		}
		return err
	}
	metricTxSent().Add(1)
	txID := trx.ID()
	return utils.WriteJSON(w, &SendTxResult{ID: &txID})
}

func (t *Transactions) handleGetPendingTransaction(w http.ResponseWriter, req *http.Request) error {
	txID, err := thor.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(err, "id")
	}
	raw := req.URL.Query().Get("raw")
	if raw != "" && raw != "false" && raw != "true" {
		return utils.BadRequest(errors.New("should be boolean"), "raw")
	}

	trx := t.pool.Get(txID)
	if trx == nil {
		return utils.WriteJSON(w, nil)
	}
	if raw == "true" {
		data, err := rlp.EncodeToBytes(trx)
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, &RawTx{hexutil.Encode(data)})
	}
	converted, err := convertTransaction(trx)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, converted)
}

func (t *Transactions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("transactions_send_tx").
		HandlerFunc(utils.WrapHandlerFunc(t.handleSendTransaction))
	sub.Path("/pending/{id}").
		Methods(http.MethodGet).
		Name("transactions_get_pending_tx").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetPendingTransaction))
}
