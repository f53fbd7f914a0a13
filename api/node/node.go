// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vechain/blockexec/api/utils"
	"github.com/vechain/blockexec/health"
	"github.com/vechain/blockexec/thor"
)

// Info is the static information of the node.
type Info struct {
	GenesisID   thor.Bytes32 `json:"genesisID"`
	Name        string       `json:"name"`
	Beneficiary thor.Address `json:"beneficiary"`
	Version     string       `json:"version"`
}

type Node struct {
	info   Info
	health *health.Health
}

func New(info Info, health *health.Health) *Node {
	return &Node{
		info,
		health,
	}
}

func (n *Node) handleNodeInfo(w http.ResponseWriter, _ *http.Request) error {
	// addressed so that the hash and address fields encode as hex
	return utils.WriteJSON(w, &n.info)
}

func (n *Node) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	status := n.health.Status()
	if !status.Healthy {
		w.Header().Set("Content-Type", utils.JSONContentType)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return utils.WriteJSON(w, status)
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/info").
		Methods(http.MethodGet).
		Name("node_get_info").
		HandlerFunc(utils.WrapHandlerFunc(n.handleNodeInfo))
	sub.Path("/health").
		Methods(http.MethodGet).
		Name("node_get_health").
		HandlerFunc(utils.WrapHandlerFunc(n.handleHealth))
}
