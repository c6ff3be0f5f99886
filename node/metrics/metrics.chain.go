// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"gitlab.com/jaxnet/chainstate/node/chainstate"
)

// chainMetrics exports the best chain snapshot of a chain state as gauges.
type chainMetrics struct {
	sync.Mutex
	metricsByName map[string]prometheus.Gauge
	state         *chainstate.ChainState
	registerer    prometheus.Registerer
	logger        zerolog.Logger
	name          string
}

// ChainMetrics returns a reader for the chain state.  Gauges are registered
// with registerer on first use.
func ChainMetrics(state *chainstate.ChainState, name string, registerer prometheus.Registerer,
	logger zerolog.Logger) IMetric {
	return &chainMetrics{
		state:         state,
		registerer:    registerer,
		logger:        logger,
		name:          name,
		metricsByName: make(map[string]prometheus.Gauge),
	}
}

func (s *chainMetrics) Read() {
	snapshot, err := s.state.BestSnapshot()
	if err != nil {
		s.logger.Error().Err(err).Msg("can't read chain snapshot")
		return
	}

	s.updateGauge("height", "Height of the best chain tip", float64(snapshot.Height))
	s.updateGauge("bits", "Difficulty bits of the best chain tip", float64(snapshot.Bits))
	s.updateGauge("median_time", "Median time of the best chain tip", float64(snapshot.MedianTime.Unix()))
	s.updateGauge("work_bits", "Bit length of the best chain work", float64(snapshot.WorkSum.BitLen()))
	s.updateGauge("common_tip", "Height of the last common tip", float64(snapshot.CommonTip))
	s.updateGauge("headers", "Number of known headers", float64(s.state.HeaderCount()))

	tip := s.state.Index().Tip()
	factor, err := s.state.Engine().AdjustmentFactor(tip)
	if err != nil {
		s.logger.Error().Err(err).Msg("can't read adjustment factor")
		return
	}
	s.updateGauge("pos_factor", "PoS to PoW adjustment factor at the tip", factor.Float64())
}

func (s *chainMetrics) updateGauge(name, help string, value float64) {
	fqName := prometheus.BuildFQName("chain", s.name, name)

	s.Lock()
	defer s.Unlock()

	m, ok := s.metricsByName[fqName]
	if !ok {
		m = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fqName,
			Help: help,
		})
		if err := s.registerer.Register(m); err != nil {
			s.logger.Error().Err(err).Str("metric", fqName).Msg("can't register metric")
		}
		s.metricsByName[fqName] = m
	}
	m.Set(value)
}
