// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IMetric metric reader
type IMetric interface {
	Read()
}

// IMetricManager metric manager
type IMetricManager interface {
	Add(metrics ...IMetric)
	Handler() http.Handler
}

// metricsManager reads every added metric on a fixed interval.
type metricsManager struct {
	mtx      sync.Mutex
	metrics  []IMetric
	interval time.Duration
	gatherer prometheus.Gatherer
}

// Metrics creates a metric manager that reads the added metrics every
// interval until ctx is done.
func Metrics(ctx context.Context, interval time.Duration, gatherer prometheus.Gatherer) IMetricManager {
	res := &metricsManager{
		interval: interval,
		gatherer: gatherer,
	}

	go res.collector(ctx)
	return res
}

func (m *metricsManager) Add(metrics ...IMetric) {
	m.mtx.Lock()
	m.metrics = append(m.metrics, metrics...)
	m.mtx.Unlock()

	for _, metric := range metrics {
		metric.Read()
	}
}

func (m *metricsManager) collector(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mtx.Lock()
			metrics := m.metrics
			m.mtx.Unlock()

			for _, v := range metrics {
				v.Read()
			}
		}
	}
}

// Handler serves the gathered metrics in the prometheus text format.
func (m *metricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
