// Package metrics wraps a markovpf.Prefetcher with Prometheus
// instrumentation, the same per-subsystem metrics-file convention used
// throughout the go-ethereum-family repos in the example pack. It is a
// pure wrapper: it never mutates Prefetcher state beyond calling
// Reference, so embedders who don't want Prometheus can depend on the
// core markovpf package alone.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openhw-labs/markovpf"
)

// Collector instruments a Prefetcher's Reference calls with Prometheus
// metrics and forwards every call through unchanged.
type Collector struct {
	pf *markovpf.Prefetcher

	references  prometheus.Counter
	hits        *prometheus.CounterVec
	prefetches  prometheus.Counter
	saturations prometheus.Counter
	ahSize      prometheus.Gauge

	lastSaturations uint64
}

// NewCollector builds a Collector around pf and registers its metrics
// with reg. Passing prometheus.NewRegistry() (rather than the global
// DefaultRegisterer) is recommended for anything other than a one-off
// process-wide instance, to keep unit tests isolated.
func NewCollector(pf *markovpf.Prefetcher, reg prometheus.Registerer) *Collector {
	c := &Collector{
		pf: pf,
		references: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovpf_references_total",
			Help: "Total number of addresses presented to the prefetcher.",
		}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markovpf_hits_total",
			Help: "Total references that hit in the access history, by kind.",
		}, []string{"kind"}),
		prefetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovpf_prefetches_issued_total",
			Help: "Total speculative prefetches issued.",
		}),
		saturations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovpf_tt_counter_saturated_total",
			Help: "Total transition-table counter increments that hit the saturation ceiling.",
		}),
		ahSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "markovpf_access_history_size",
			Help: "Current number of entries in the access history window.",
		}),
	}

	reg.MustRegister(c.references, c.hits, c.prefetches, c.saturations, c.ahSize)
	return c
}

// Reference forwards to the wrapped Prefetcher and records metrics for
// the resulting event.
func (c *Collector) Reference(addr markovpf.Address) markovpf.PrefetchEvent {
	ev := c.pf.Reference(addr)

	c.references.Inc()
	switch {
	case ev.PrefetchHit:
		c.hits.WithLabelValues("prefetch").Inc()
	case ev.DemandHit:
		c.hits.WithLabelValues("demand").Inc()
	}
	if ev.Prefetch {
		c.prefetches.Inc()
	}

	if sat := c.pf.TransitionSaturations(); sat > c.lastSaturations {
		c.saturations.Add(float64(sat - c.lastSaturations))
		c.lastSaturations = sat
	}

	c.ahSize.Set(float64(len(ev.AccessHistory)))
	return ev
}

// Prefetcher returns the wrapped instance, for callers that need direct
// access (Reset, Snapshot) alongside the instrumented Reference path.
func (c *Collector) Prefetcher() *markovpf.Prefetcher { return c.pf }
