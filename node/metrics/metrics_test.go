// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/node/chaingen"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
)

func TestChainMetrics(t *testing.T) {
	params := chaincfg.RegTestParams
	state := chainstate.New(chainstate.Config{Params: &params})
	require.NoError(t, state.Initialize())
	defer state.Close()

	gen := chaingen.New(&params, nil)
	for _, header := range chaingen.Headers(gen.Chain(12)[1:]) {
		_, _, err := state.ProcessHeader(header)
		require.NoError(t, err)
	}

	registry := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := Metrics(ctx, time.Hour, registry)
	metric := ChainMetrics(state, "regtest", registry, corelog.Disabled)
	manager.Add(metric)

	gauges := metric.(*chainMetrics).metricsByName
	assert.Equal(t, 12.0, testutil.ToFloat64(gauges["chain_regtest_height"]))
	assert.Equal(t, 13.0, testutil.ToFloat64(gauges["chain_regtest_headers"]))
	assert.Equal(t, 1.0, testutil.ToFloat64(gauges["chain_regtest_pos_factor"]))

	// A second read reuses the registered gauges.
	_, _, err := state.ProcessHeader(gen.NextNode(state.Index().Tip()).Header())
	require.NoError(t, err)
	metric.Read()
	assert.Equal(t, 13.0, testutil.ToFloat64(gauges["chain_regtest_height"]))

	srv := httptest.NewServer(manager.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chain_regtest_common_tip 0")
}
