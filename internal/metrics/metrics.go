/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package metrics keeps Prometheus instruments for the editor, storage and
// export paths. The CLI can dump them in text format for a node exporter
// textfile collector.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Registry struct {
	ActionsTotal           *prometheus.CounterVec
	HistoryStepsTotal      *prometheus.CounterVec
	SnapResultsTotal       *prometheus.CounterVec
	StorageOperationsTotal *prometheus.CounterVec
	StorageDuration        *prometheus.HistogramVec
	ExportsTotal           *prometheus.CounterVec
	ExportDuration         *prometheus.HistogramVec
	DrawingShapes          prometheus.Gauge
	HistoryBytes           prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	fast := []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	return &Registry{
		ActionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "godiagram_editor_actions_total",
			Help: "Editor actions dispatched, by action and status.",
		}, []string{"action", "status"}),
		HistoryStepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "godiagram_editor_history_steps_total",
			Help: "Undo and redo steps taken.",
		}, []string{"direction"}),
		SnapResultsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "godiagram_snap_results_total",
			Help: "Snap queries by matched candidate kind (none when nothing was in range).",
		}, []string{"kind"}),
		StorageOperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "godiagram_storage_operations_total",
			Help: "Storage operations by operation and status.",
		}, []string{"operation", "status"}),
		StorageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "godiagram_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds.",
			Buckets: fast,
		}, []string{"operation"}),
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "godiagram_exports_total",
			Help: "Exports by format and status.",
		}, []string{"format", "status"}),
		ExportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "godiagram_export_duration_seconds",
			Help:    "Export duration in seconds.",
			Buckets: fast,
		}, []string{"format"}),
		DrawingShapes: f.NewGauge(prometheus.GaugeOpts{
			Name: "godiagram_drawing_shapes",
			Help: "Shapes in the drawing last edited.",
		}),
		HistoryBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "godiagram_history_bytes",
			Help: "Bytes held by undo history snapshots.",
		}),
		registry: reg,
	}
}

// Prometheus returns the underlying registry, e.g. for promhttp.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAction counts an action. Per-shape names such as "move:r1" are
// reduced to their verb to keep label cardinality bounded.
func (r *Registry) RecordAction(name string, err error) {
	verb, _, _ := strings.Cut(name, ":")
	r.ActionsTotal.WithLabelValues(verb, status(err)).Inc()
}

func (r *Registry) RecordHistoryStep(direction string) {
	r.HistoryStepsTotal.WithLabelValues(direction).Inc()
}

// RecordSnap counts a snap query; an empty kind means no snap.
func (r *Registry) RecordSnap(kind string) {
	if kind == "" {
		kind = "none"
	}
	r.SnapResultsTotal.WithLabelValues(kind).Inc()
}

func (r *Registry) RecordStorage(op string, start time.Time, err error) {
	r.StorageOperationsTotal.WithLabelValues(op, status(err)).Inc()
	r.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Registry) RecordExport(format string, start time.Time, err error) {
	r.ExportsTotal.WithLabelValues(format, status(err)).Inc()
	r.ExportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all metrics in the Prometheus text format, atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
