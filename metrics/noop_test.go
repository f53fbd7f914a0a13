// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	metrics = defaultNoopMetrics()
	require.Nil(t, HTTPHandler())

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	Counter("count1").Add(1)
	Histogram("hist1", nil).Observe(1)
	HistogramVec("hist2", []string{"zeroOrOne"}, nil).
		ObserveWithLabels(1, map[string]string{"thisIsNonsense": "butDoesntBreak"})
	CounterVec("countVec1", []string{"zeroOrOne"}).
		AddWithLabel(1, map[string]string{"thisIsNonsense": "butDoesntBreak"})
	GaugeVec("gaugeVec1", []string{"zeroOrOne"}).
		SetWithLabel(1, map[string]string{"thisIsNonsense": "butDoesntBreak"})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
