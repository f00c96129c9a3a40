// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/accountd/internal/auth"
)

// Metrics contains the accountd Prometheus metrics.
type Metrics struct {
	AuthOperations *prometheus.CounterVec
	AuthDuration   *prometheus.HistogramVec
	HTTPRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the accountd metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_auth_operations_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		AuthDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "accountd_auth_operation_duration_seconds",
				Help: "Duration of auth operations by operation",
				// Password hashing dominates; argon2id runs take tens of milliseconds.
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_http_requests_total",
				Help: "Total number of HTTP API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.AuthOperations, m.AuthDuration, m.HTTPRequests)
	return m
}

// ObserveOperation records one auth operation. The outcome label is the
// error kind name, "ok" on success.
func (m *Metrics) ObserveOperation(operation string, kind auth.ErrorKind, elapsed time.Duration) {
	m.AuthOperations.WithLabelValues(operation, kind.String()).Inc()
	m.AuthDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP API request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
