// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api serves the http interface over the chain, the tx pool and call simulation.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/vechain/blockexec/api/accounts"
	"github.com/vechain/blockexec/api/blocks"
	"github.com/vechain/blockexec/api/node"
	"github.com/vechain/blockexec/api/transactions"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/contract"
	"github.com/vechain/blockexec/health"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/metrics"
	"github.com/vechain/blockexec/state"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	CallGasLimit    uint64
	EnableReqLogger bool
	EnableMetrics   bool
	// Health enables the node endpoints when set.
	Health   *health.Health
	NodeInfo node.Info
}

// New return api router
func New(
	repo *chain.Repository,
	stater *state.Stater,
	head accounts.Head,
	simulator *contract.Simulator,
	pool transactions.Pool,
	opts Options,
) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	accounts.New(repo, stater, head, simulator, opts.CallGasLimit).
		Mount(router, "/accounts")
	blocks.New(repo).
		Mount(router, "/blocks")
	transactions.New(pool).
		Mount(router, "/transactions")
	if opts.Health != nil {
		node.New(opts.NodeInfo, opts.Health).
			Mount(router, "/node")
	}

	if opts.EnableMetrics {
		if h := metrics.HTTPHandler(); h != nil {
			router.Path("/metrics").
				Methods(http.MethodGet).
				Handler(h)
		}
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP
}
