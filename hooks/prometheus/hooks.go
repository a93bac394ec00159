// Package promhooks exports cache events as Prometheus metrics.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/cacheaside"
)

type Hooks struct {
	// Hits counts reads served from the store
	Hits prometheus.Counter
	// Misses counts reads that found nothing
	Misses prometheus.Counter
	// DecodeFailures counts entries the codec rejected
	DecodeFailures prometheus.Counter
	// Writes counts successful writes
	Writes prometheus.Counter
	// WriteBytes tracks encoded entry sizes
	WriteBytes prometheus.Histogram
	// StoreErrors tracks store failures by operation
	StoreErrors *prometheus.CounterVec
}

var _ cacheaside.Hooks = (*Hooks)(nil)

// New registers the collectors on reg. nil reg => prometheus.DefaultRegisterer.
// Registering twice on the same registerer panics, like promauto does.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheaside_hits_total",
			Help: "Total number of cache hits",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheaside_misses_total",
			Help: "Total number of cache misses",
		}),
		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheaside_decode_failures_total",
			Help: "Total number of cached entries that could not be decoded",
		}),
		Writes: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheaside_writes_total",
			Help: "Total number of cache writes",
		}),
		WriteBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cacheaside_write_bytes",
			Help:    "Size of encoded cache entries in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B .. 1MiB
		}),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheaside_store_errors_total",
				Help: "Total number of store operation errors",
			},
			[]string{"op"}, // "get", "set", "refresh", "remove"
		),
	}
}

func (h *Hooks) Hit(string)                 { h.Hits.Inc() }
func (h *Hooks) Miss(string)                { h.Misses.Inc() }
func (h *Hooks) DecodeFailed(string, error) { h.DecodeFailures.Inc() }

func (h *Hooks) Stored(_ string, size int) {
	h.Writes.Inc()
	h.WriteBytes.Observe(float64(size))
}

// StoreError drops the key; keys are unbounded and must not become labels.
func (h *Hooks) StoreError(op, _ string, _ error) {
	h.StoreErrors.WithLabelValues(op).Inc()
}
