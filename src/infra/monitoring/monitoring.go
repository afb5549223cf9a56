// Package monitoring holds the prometheus collectors shared by the infra
// adapters and the feature services.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts outgoing metadata provider calls by outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicdex",
		Name:      "provider_requests_total",
		Help:      "Requests made to metadata providers.",
	}, []string{"provider", "outcome"})

	// CacheLookups counts TTL cache reads by result (hit, miss, expired, corrupt).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicdex",
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups.",
	}, []string{"result"})

	// CacheWrites counts TTL cache writes.
	CacheWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "musicdex",
		Name:      "cache_writes_total",
		Help:      "Response cache writes.",
	})

	// JobsFinished counts jobs reaching a terminal state.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicdex",
		Name:      "jobs_finished_total",
		Help:      "Jobs that reached a terminal state.",
	}, []string{"type", "status"})

	// LibraryItems tracks the catalogue size by kind.
	LibraryItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "musicdex",
		Name:      "library_items",
		Help:      "Number of catalogued items by kind.",
	}, []string{"kind"})
)

