/*
 * Copyright 2026 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inkwell-team/inkwell/internal/version"
)

const namespace = "inkwell"

// Metrics manages the metric information that Inkwell is trying to
// measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	documentsActive prometheus.Gauge
	sessionsActive  prometheus.Gauge

	broadcastsTotal          prometheus.Counter
	receivedUpdateBytesTotal prometheus.Counter
	sentUpdateBytesTotal     prometheus.Counter

	snapshotWritesTotal       prometheus.Counter
	snapshotWriteErrorsTotal  prometheus.Counter
	snapshotWriteSkippedTotal prometheus.Counter
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	metrics := &Metrics{
		registry: registry,
		serverVersion: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		documentsActive: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "active",
			Help:      "The number of documents currently loaded in memory.",
		}),
		sessionsActive: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "The number of connected sessions.",
		}),
		broadcastsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "broadcasts_total",
			Help:      "The total number of update broadcasts fanned out.",
		}),
		receivedUpdateBytesTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "received_update_bytes_total",
			Help:      "The total bytes of updates received from clients.",
		}),
		sentUpdateBytesTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sent_update_bytes_total",
			Help:      "The total bytes of updates sent to clients.",
		}),
		snapshotWritesTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "writes_total",
			Help:      "The total number of snapshot writes.",
		}),
		snapshotWriteErrorsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "write_errors_total",
			Help:      "The total number of failed snapshot writes.",
		}),
		snapshotWriteSkippedTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "writes_skipped_total",
			Help:      "The total number of snapshot writes skipped because the encoding was empty.",
		}),
	}
	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddDocument increases the active document gauge.
func (m *Metrics) AddDocument() { m.documentsActive.Inc() }

// RemoveDocument decreases the active document gauge.
func (m *Metrics) RemoveDocument() { m.documentsActive.Dec() }

// AddSession increases the active session gauge.
func (m *Metrics) AddSession() { m.sessionsActive.Inc() }

// RemoveSession decreases the active session gauge.
func (m *Metrics) RemoveSession() { m.sessionsActive.Dec() }

// AddBroadcast counts one update fan-out.
func (m *Metrics) AddBroadcast() { m.broadcastsTotal.Inc() }

// AddReceivedUpdateBytes counts bytes of updates received from clients.
func (m *Metrics) AddReceivedUpdateBytes(n int) {
	m.receivedUpdateBytesTotal.Add(float64(n))
}

// AddSentUpdateBytes counts bytes of updates sent to clients.
func (m *Metrics) AddSentUpdateBytes(n int) {
	m.sentUpdateBytesTotal.Add(float64(n))
}

// AddSnapshotWrite counts one snapshot write.
func (m *Metrics) AddSnapshotWrite() { m.snapshotWritesTotal.Inc() }

// AddSnapshotWriteError counts one failed snapshot write.
func (m *Metrics) AddSnapshotWriteError() { m.snapshotWriteErrorsTotal.Inc() }

// AddSnapshotWriteSkipped counts one suppressed empty snapshot write.
func (m *Metrics) AddSnapshotWriteSkipped() { m.snapshotWriteSkippedTotal.Inc() }
