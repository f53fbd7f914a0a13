// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/api/utils"
	"github.com/vechain/blockexec/blockstate"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/contract"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
)

// Head provides the block state on top of the best block.
type Head interface {
	Pending(fn func(bs *blockstate.BlockState) error) error
}

type Accounts struct {
	repo         *chain.Repository
	stater       *state.Stater
	head         Head
	simulator    *contract.Simulator
	callGasLimit uint64
}

func New(
	repo *chain.Repository,
	stater *state.Stater,
	head Head,
	simulator *contract.Simulator,
	callGasLimit uint64,
) *Accounts {
	return &Accounts{
		repo,
		stater,
		head,
		simulator,
		callGasLimit,
	}
}

// newState returns the state at the end of the block.
func (a *Accounts) newState(req *http.Request) (*state.State, error) {
	revision, err := utils.ParseRevision(req.URL.Query().Get("revision"), true)
	if err != nil {
		return nil, utils.BadRequest(err, "revision")
	}
	summary, err := utils.GetSummary(revision, a.repo)
	if err != nil {
		if a.repo.IsNotFound(err) {
			return nil, utils.BadRequest(err, "revision")
		}
		return nil, err
	}
	st, err := a.stater.NewState(summary.Header.StateRoot())
	if err != nil {
		if errors.Is(err, state.ErrInvalidSnapshot) {
			return nil, utils.HTTPError(errors.WithMessage(err, "revision: state pruned"), http.StatusGone)
		}
		return nil, err
	}
	return st, nil
}

func (a *Accounts) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(err, "address")
	}
	st, err := a.newState(req)
	if err != nil {
		return err
	}

	balance, err := st.GetBalance(addr)
	if err != nil {
		return err
	}
	nonce, err := st.GetNonce(addr)
	if err != nil {
		return err
	}
	code, err := st.GetCode(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Account{
		Balance: (*math.HexOrDecimal256)(balance),
		Nonce:   math.HexOrDecimal64(nonce),
		HasCode: len(code) != 0,
	})
}

func (a *Accounts) handleGetCode(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(err, "address")
	}
	st, err := a.newState(req)
	if err != nil {
		return err
	}
	code, err := st.GetCode(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &GetCodeResult{Code: hexutil.Encode(code)})
}

func (a *Accounts) handleGetStorage(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(err, "address")
	}
	key, err := thor.ParseBytes32(mux.Vars(req)["key"])
	if err != nil {
		return utils.BadRequest(err, "key")
	}
	st, err := a.newState(req)
	if err != nil {
		return err
	}
	value, err := st.GetStorage(addr, key)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &GetStorageResult{Value: value.String()})
}

func (a *Accounts) handleCallContract(w http.ResponseWriter, req *http.Request) error {
	var callData CallData
	if err := utils.ParseJSON(req.Body, &callData); err != nil {
		return utils.BadRequest(err, "body")
	}

	// blank for contract creation
	var to any
	if v := mux.Vars(req)["address"]; v != "" {
		addr, err := thor.ParseAddress(v)
		if err != nil {
			return utils.BadRequest(err, "address")
		}
		to = addr
	}

	opts, err := a.callOptions(&callData)
	if err != nil {
		return err
	}
	// the simulation is not interruptible
	if err := req.Context().Err(); err != nil {
		return err
	}

	var result *contract.CallResult
	if err := a.head.Pending(func(bs *blockstate.BlockState) (err error) {
		result, err = a.simulator.Simulate(bs, to, opts...)
		return
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, convertCallResult(result))
}

func (a *Accounts) callOptions(callData *CallData) ([]contract.Option, error) {
	gas := callData.Gas
	if gas > a.callGasLimit {
		return nil, utils.Forbidden(errors.New("exceeds limit"), "gas")
	} else if gas == 0 {
		gas = a.callGasLimit
	}

	opts := []contract.Option{contract.WithStartGas(gas)}
	if callData.Caller != nil {
		opts = append(opts, contract.WithSender(*callData.Caller))
	}
	if callData.Value != nil {
		opts = append(opts, contract.WithValue((*big.Int)(callData.Value)))
	}
	// free calls by default
	gasPrice := new(big.Int)
	if callData.GasPrice != nil {
		gasPrice = (*big.Int)(callData.GasPrice)
	}
	opts = append(opts, contract.WithGasPrice(gasPrice))
	if callData.Data != "" {
		data, err := hexutil.Decode(callData.Data)
		if err != nil {
			return nil, utils.BadRequest(err, "data")
		}
		opts = append(opts, contract.WithData(data))
	}
	return opts, nil
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("accounts_call_contract").
		HandlerFunc(utils.WrapHandlerFunc(a.handleCallContract))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("accounts_get_account").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetAccount))
	sub.Path("/{address}/code").
		Methods(http.MethodGet).
		Name("accounts_get_code").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetCode))
	sub.Path("/{address}/storage/{key}").
		Methods(http.MethodGet).
		Name("accounts_get_storage").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetStorage))
	sub.Path("/{address}").
		Methods(http.MethodPost).
		Name("accounts_call_contract_address").
		HandlerFunc(utils.WrapHandlerFunc(a.handleCallContract))
}
