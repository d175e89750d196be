package prom

import (
	"github.com/IvanBrykalov/bufcache/bcache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements bcache.Metrics and exports Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evicts    prometheus.Counter
	transfers *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Buffer cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Buffer cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Cached blocks evicted to make room for others",
			ConstLabels: constLabels,
		}),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "device_transfers_total",
				Help:        "Device transfers issued by the cache, by direction",
				ConstLabels: constLabels,
			},
			[]string{"direction"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.transfers)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter.
func (a *Adapter) Evict() { a.evicts.Inc() }

// Transfer increments the transfer counter with a direction label.
func (a *Adapter) Transfer(write bool) {
	if write {
		a.transfers.WithLabelValues("write").Inc()
	} else {
		a.transfers.WithLabelValues("read").Inc()
	}
}

// Compile-time check: ensure Adapter implements bcache.Metrics.
var _ bcache.Metrics = (*Adapter)(nil)
