// Package metrics exposes the registry's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	VersionsSubmitted *prometheus.CounterVec
	Deactivations     *prometheus.CounterVec
	SubmitConflicts   prometheus.Counter
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

// New registers all registry metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VersionsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_versions_submitted_total",
			Help: "Total number of version rows appended, by entity kind",
		}, []string{"kind"}),
		Deactivations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_deactivations_total",
			Help: "Total number of chains deactivated, by entity kind",
		}, []string{"kind"}),
		SubmitConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_submit_conflicts_total",
			Help: "Total number of submissions rejected with a timestamp collision",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_blob_cache_hits_total",
			Help: "Total number of shapefile reads served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_blob_cache_misses_total",
			Help: "Total number of shapefile reads that went to the store",
		}),
	}
}

func (m *Metrics) IncVersionsSubmitted(kind string) { m.VersionsSubmitted.WithLabelValues(kind).Inc() }
func (m *Metrics) IncDeactivations(kind string)     { m.Deactivations.WithLabelValues(kind).Inc() }
func (m *Metrics) IncSubmitConflicts()              { m.SubmitConflicts.Inc() }
func (m *Metrics) IncCacheHits()                    { m.CacheHits.Inc() }
func (m *Metrics) IncCacheMisses()                  { m.CacheMisses.Inc() }
