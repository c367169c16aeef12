package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts responses served from redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// CacheMisses counts lookups that found nothing usable.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// ConditionalRequestsSent counts revalidation requests.
	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_cache_conditional_requests_total",
		Help: "Total number of conditional requests sent for cached responses",
	})

	// NotModifiedResponses counts 304 answers to conditional requests.
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_cache_not_modified_total",
		Help: "Total number of 304 Not Modified responses",
	})

	// PurgedKeys counts keys removed by Purge.
	PurgedKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_cache_purged_keys_total",
		Help: "Total number of cache keys removed by purge",
	})

	// CacheErrors counts redis failures by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astronews_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // get, set, delete, purge
)
