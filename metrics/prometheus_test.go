// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	server := httptest.NewServer(HTTPHandler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	count1 := Counter("prom_count1")
	count1.Add(1)
	for range 5 {
		Counter("prom_count2").Add(1)
	}
	Gauge("prom_gauge1").Set(42)
	GaugeVec("prom_gaugeVec1", []string{"zeroOrOne"}).AddWithLabel(3, map[string]string{"zeroOrOne": "1"})
	CounterVec("prom_countVec1", []string{"zeroOrOne"}).AddWithLabel(2, map[string]string{"zeroOrOne": "0"})
	Histogram("prom_hist1", []int64{1, 10}).Observe(5)

	body := scrape(t)
	require.Contains(t, body, "blockexec_prom_count1 1")
	require.Contains(t, body, "blockexec_prom_count2 5")
	require.Contains(t, body, "blockexec_prom_gauge1 42")
	require.Contains(t, body, `blockexec_prom_gaugeVec1{zeroOrOne="1"} 3`)
	require.Contains(t, body, `blockexec_prom_countVec1{zeroOrOne="0"} 2`)
	require.Contains(t, body, `blockexec_prom_hist1_bucket{le="10"} 1`)

	// same meter for the same name
	require.Same(t, count1, Counter("prom_count1"))
}

func TestLazyLoading(t *testing.T) {
	metrics = defaultNoopMetrics() // make sure it starts in the default state of noopMeter

	for _, a := range []any{
		Gauge("noopGauge"),
		GaugeVec("noopGauge", nil),
		Counter("noopCounter"),
		CounterVec("noopCounter", nil),
		Histogram("noopHist", nil),
		HistogramVec("noopHist", nil, nil),
	} {
		require.IsType(t, &noopMeters{}, a)
	}

	lazyGauge := LazyLoadGauge("lazyGauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazyGaugeVec", nil)
	lazyCounter := LazyLoadCounter("lazyCounter")
	lazyCounterVec := LazyLoadCounterVec("lazyCounterVec", nil)
	lazyHistogram := LazyLoadHistogram("lazyHistogram", nil)
	lazyHistogramVec := LazyLoadHistogramVec("lazyHistogramVec", nil, nil)

	// after initialization, newly created metrics become of the prometheus type
	InitializePrometheusMetrics()

	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promHistogramMeter{}, lazyHistogram())
	require.IsType(t, &promHistogramVecMeter{}, lazyHistogramVec())
}
