// Copyright 2025 Eco Protocol

// Package metrics exposes Prometheus counters and histograms for the
// fulfillment, prover and lifecycle operations, on the teacher's
// MetricsAddr configuration field — present in the teacher but never
// wired to an actual registry; this package wires it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every counter/histogram the Portal/Prover core emits.
type Metrics struct {
	FulfillmentsTotal    *prometheus.CounterVec
	WithdrawalsTotal     *prometheus.CounterVec
	RefundsTotal         *prometheus.CounterVec
	ProofDispatchSeconds prometheus.Histogram
	ProofsHandledTotal   *prometheus.CounterVec
}

// New registers every metric against its own registry, so tests can use a
// fresh Metrics value without colliding with prometheus' global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return newWith(reg)
}

// NewForGlobalRegistry registers against prometheus.DefaultRegisterer, the
// registry promhttp.Handler() (without arguments) serves.
func NewForGlobalRegistry() *Metrics {
	return newWith(nil)
}

func newWith(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FulfillmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "fulfillments_total",
			Help:      "Fulfillment attempts by outcome.",
		}, []string{"outcome"}),
		WithdrawalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "withdrawals_total",
			Help:      "Reward withdrawals by outcome.",
		}, []string{"outcome"}),
		RefundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "refunds_total",
			Help:      "Reward refunds by outcome.",
		}, []string{"outcome"}),
		ProofDispatchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "proof_dispatch_seconds",
			Help:      "Latency of outbound proof message dispatch.",
			Buckets:   prometheus.DefBuckets,
		}),
		ProofsHandledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "proofs_handled_total",
			Help:      "Inbound proof records processed by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registered metrics in the Prometheus exposition
// format, for mounting on Config.MetricsAddr.
func Handler() http.Handler {
	return promhttp.Handler()
}
