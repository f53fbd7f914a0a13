// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package blocks_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/api/blocks"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/test/testchain"
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

func initBlockServer(t *testing.T) (*httptest.Server, *block.Block) {
	chain, err := testchain.New()
	require.NoError(t, err)

	dev := genesis.DevAccounts()[0]
	tx0, err := chain.NewTx(dev, 0, &testchain.CounterAddr, nil, nil)
	require.NoError(t, err)
	tx1, err := chain.NewTx(dev, 1, &testchain.RevertAddr, nil, []byte{1})
	require.NoError(t, err)
	blk, _, err := chain.MintBlock(tx0, tx1)
	require.NoError(t, err)

	router := mux.NewRouter()
	blocks.New(chain.Repo()).Mount(router, "/blocks")
	return httptest.NewServer(router), blk
}

func TestBlocks(t *testing.T) {
	ts, blk := initBlockServer(t)
	defer ts.Close()

	t.Run("collapsed", func(t *testing.T) {
		for _, revision := range []string{"", "best", "1", blk.Header().ID().String()} {
			res, status := httpGet(t, ts.URL+"/blocks/"+revision)
			if revision == "" {
				// no route
				assert.Equal(t, http.StatusNotFound, status)
				continue
			}
			require.Equal(t, http.StatusOK, status, revision)

			var got blocks.JSONCollapsedBlock
			require.NoError(t, json.Unmarshal(res, &got))
			h := blk.Header()
			assert.Equal(t, h.ID(), got.ID)
			assert.Equal(t, uint32(1), got.Number)
			assert.Equal(t, h.ParentID(), got.ParentID)
			assert.Equal(t, h.StateRoot(), got.StateRoot)
			assert.Equal(t, h.GasUsed(), got.GasUsed)
			assert.Equal(t, uint32(blk.Size()), got.Size)
			assert.True(t, got.IsTrunk)
			assert.Equal(t, []thor.Bytes32{blk.Transactions()[0].ID(), blk.Transactions()[1].ID()}, got.Transactions)
		}
	})

	t.Run("expanded", func(t *testing.T) {
		res, status := httpGet(t, ts.URL+"/blocks/1?expanded=true")
		require.Equal(t, http.StatusOK, status)

		var got blocks.JSONExpandedBlock
		require.NoError(t, json.Unmarshal(res, &got))
		require.Len(t, got.Transactions, 2)
		assert.Equal(t, genesis.DevAccounts()[0].Address, got.Transactions[0].Origin)
		assert.False(t, got.Transactions[0].Reverted)
		assert.True(t, got.Transactions[1].Reverted)
		assert.Equal(t, "0x01", got.Transactions[1].Output)
		assert.Equal(t, got.GasUsed, got.Transactions[0].GasUsed+got.Transactions[1].GasUsed)
	})

	t.Run("genesis", func(t *testing.T) {
		res, status := httpGet(t, ts.URL+"/blocks/0")
		require.Equal(t, http.StatusOK, status)
		var got blocks.JSONCollapsedBlock
		require.NoError(t, json.Unmarshal(res, &got))
		assert.Equal(t, uint32(0), got.Number)
		assert.Equal(t, blk.Header().ParentID(), got.ID)
		assert.Empty(t, got.Transactions)
		assert.NotNil(t, got.Transactions)
	})

	t.Run("not found", func(t *testing.T) {
		for _, revision := range []string{"2", strconv.Itoa(1 << 20), thor.Blake2b([]byte("none")).String()} {
			res, status := httpGet(t, ts.URL+"/blocks/"+revision)
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "null\n", string(res))
		}
	})

	t.Run("bad inputs", func(t *testing.T) {
		for _, url := range []string{"/blocks/next", "/blocks/abc", "/blocks/1?expanded=1"} {
			_, status := httpGet(t, ts.URL+url)
			assert.Equal(t, http.StatusBadRequest, status, url)
		}
	})
}
