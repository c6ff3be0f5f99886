// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/corelog"
	"gitlab.com/jaxnet/chainstate/node/chaingen"
	"gitlab.com/jaxnet/chainstate/node/chainstate"
	"gitlab.com/jaxnet/chainstate/node/metrics"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
)

func testRouter(t *testing.T) (*mux.Router, *chainstate.ChainState) {
	params := chaincfg.NetRegtest.Params()
	state := chainstate.New(chainstate.Config{Params: params})
	require.NoError(t, state.Initialize())
	t.Cleanup(func() { state.Close() })

	require.NoError(t, state.Tips().RegisterProvider("beacon"))
	for _, header := range chaingen.Headers(chaingen.New(params, nil).Chain(7)[1:]) {
		_, _, err := state.ProcessHeader(header)
		require.NoError(t, err)
	}
	require.NoError(t, state.Tips().CommitTipPersisted("beacon", state.Index().NodeByHeight(5)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	registry := prometheus.NewRegistry()
	manager := metrics.Metrics(ctx, time.Hour, registry)
	manager.Add(metrics.ChainMetrics(state, "regtest", registry, corelog.Disabled))

	router := mux.NewRouter()
	RegisterRoutes(router, state, manager.Handler(), corelog.Disabled)
	return router, state
}

func TestTipRoute(t *testing.T) {
	router, state := testRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/tip", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))

	var status tipStatus
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, int32(7), status.Height)
	assert.Equal(t, state.Index().Tip().GetHash().String(), status.Hash)
	assert.Equal(t, int32(5), status.CommonTip)
	assert.Equal(t, 8, status.Headers)
	assert.Equal(t, []string{"beacon"}, status.Providers)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := testRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "chain_regtest_height 7")

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/tip", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
}
