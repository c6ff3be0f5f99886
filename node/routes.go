// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/node/chainstate"
)

// tipStatus is the JSON view of the best chain served on /tip.
type tipStatus struct {
	Hash           string   `json:"hash"`
	Height         int32    `json:"height"`
	Bits           uint32   `json:"bits"`
	IsProofOfStake bool     `json:"pos"`
	WorkSum        string   `json:"work_sum"`
	MedianTime     int64    `json:"median_time"`
	CommonTip      int32    `json:"common_tip"`
	Headers        int      `json:"headers"`
	Providers      []string `json:"providers"`
}

// RegisterRoutes sets up the HTTP routes of the daemon.
func RegisterRoutes(r *mux.Router, state *chainstate.ChainState, metricsHandler http.Handler,
	logger zerolog.Logger) {
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/tip", tipHandler(state, logger)).Methods(http.MethodGet)
}

func tipHandler(state *chainstate.ChainState, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		best, err := state.BestSnapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		status := tipStatus{
			Hash:           best.Hash.String(),
			Height:         best.Height,
			Bits:           best.Bits,
			IsProofOfStake: best.IsProofOfStake,
			WorkSum:        best.WorkSum.String(),
			MedianTime:     best.MedianTime.Unix(),
			CommonTip:      best.CommonTip,
			Headers:        state.HeaderCount(),
			Providers:      state.Tips().Providers(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error().Err(err).Msg("can't write tip status")
		}
	}
}
