// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/api/node"
	"github.com/vechain/blockexec/health"
	"github.com/vechain/blockexec/thor"
)

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data, res.StatusCode
}

func TestNode(t *testing.T) {
	info := node.Info{
		GenesisID:   thor.Blake2b([]byte("genesis")),
		Name:        "devnet",
		Beneficiary: thor.BytesToAddress([]byte("beneficiary")),
		Version:     "1.0.0",
	}
	h := health.New(time.Minute)

	router := mux.NewRouter()
	node.New(info, h).Mount(router, "/node")
	ts := httptest.NewServer(router)
	defer ts.Close()

	res, status := httpGet(t, ts.URL+"/node/info")
	require.Equal(t, http.StatusOK, status)
	var gotInfo node.Info
	require.NoError(t, json.Unmarshal(res, &gotInfo))
	assert.Equal(t, info, gotInfo)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(res, &raw))
	assert.Equal(t, info.GenesisID.String(), raw["genesisID"])
	assert.Equal(t, info.Beneficiary.String(), raw["beneficiary"])

	// no block yet
	res, status = httpGet(t, ts.URL+"/node/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	var got health.Status
	require.NoError(t, json.Unmarshal(res, &got))
	assert.False(t, got.Healthy)

	h.NewBestBlock(thor.Blake2b([]byte("best")))
	res, status = httpGet(t, ts.URL+"/node/health")
	assert.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(res, &got))
	assert.True(t, got.Healthy)
	assert.Equal(t, thor.Blake2b([]byte("best")), *got.BlockIngestion.BestBlock)
}
