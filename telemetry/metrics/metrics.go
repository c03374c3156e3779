// Package metrics exposes the engine's Prometheus collectors: frame
// pacing slip, per-phase duration, Any-Cache hit/evict counts, and
// import pipeline throughput.
package metrics

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a Prometheus registry with the engine's fixed set of
// collectors, pre-registered on construction.
type Registry struct {
	reg *prom.Registry

	FrameSlipSeconds    prom.Histogram
	PhaseDurationSecond *prom.HistogramVec
	CacheHits           prom.Counter
	CacheMisses         prom.Counter
	CacheEvictions      *prom.CounterVec
	ImportCompleted     *prom.CounterVec
	ImportFailed        *prom.CounterVec

	mu      sync.Mutex
	handler http.Handler
}

// New creates a Registry. If reg is nil, a fresh prometheus.Registry is
// used so tests never collide with the global default registry.
func New(reg *prom.Registry) *Registry {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Registry{
		reg: reg,
		FrameSlipSeconds: prom.NewHistogram(prom.HistogramOpts{
			Name:    "oxygen_frame_pacing_slip_seconds",
			Help:    "Measured slip between the target and actual frame deadline.",
			Buckets: prom.DefBuckets,
		}),
		PhaseDurationSecond: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "oxygen_phase_duration_seconds",
			Help:    "Wall-clock duration of each frame phase.",
			Buckets: prom.DefBuckets,
		}, []string{"phase"}),
		CacheHits: prom.NewCounter(prom.CounterOpts{
			Name: "oxygen_anycache_hits_total",
			Help: "Any-Cache CheckOut calls that found a matching entry.",
		}),
		CacheMisses: prom.NewCounter(prom.CounterOpts{
			Name: "oxygen_anycache_misses_total",
			Help: "Any-Cache CheckOut calls that found no entry or a type mismatch.",
		}),
		CacheEvictions: prom.NewCounterVec(prom.CounterOpts{
			Name: "oxygen_anycache_evictions_total",
			Help: "Any-Cache entries evicted, by reason.",
		}, []string{"reason"}),
		ImportCompleted: prom.NewCounterVec(prom.CounterOpts{
			Name: "oxygen_import_items_completed_total",
			Help: "Import plan items that completed successfully, by kind.",
		}, []string{"kind"}),
		ImportFailed: prom.NewCounterVec(prom.CounterOpts{
			Name: "oxygen_import_items_failed_total",
			Help: "Import plan items that failed or were canceled, by kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prom.Collector{
		r.FrameSlipSeconds, r.PhaseDurationSecond, r.CacheHits, r.CacheMisses,
		r.CacheEvictions, r.ImportCompleted, r.ImportFailed,
	} {
		_ = reg.Register(c) // best-effort: AlreadyRegisteredError is not fatal
	}
	r.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return r
}

// Handler returns the HTTP handler serving /metrics.
func (r *Registry) Handler() http.Handler { return r.handler }
