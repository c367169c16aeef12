// Package metrics exposes the Prometheus registry used by astronews.
// Metrics are defined with promauto next to the code that records them
// (feed, client, cache, ratelimit) so no package depends on this one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Feed Metrics (pkg/feed):
//   - astronews_feed_page_fetches_total{kind, outcome} (Counter): page fetches by kind (initial, more, refresh) and outcome
//   - astronews_feed_page_fetch_duration_seconds{kind} (Histogram): page fetch duration
//   - astronews_feed_duplicate_articles_total (Counter): articles dropped because their id was already shown
//   - astronews_feed_ignored_triggers_total{op, reason} (Counter): LoadMore/Refresh calls that were no-ops
//
// Source Metrics (pkg/client):
//   - astronews_source_requests_total{status} (Counter): HTTP requests by status
//   - astronews_source_request_duration_seconds (Histogram): HTTP request duration
//   - astronews_source_errors_total{class} (Counter): errors by class (network, client, server, rate_limit, malformed)
//
// Cache Metrics (pkg/cache):
//   - astronews_cache_hits_total (Counter)
//   - astronews_cache_misses_total (Counter)
//   - astronews_cache_conditional_requests_total (Counter): revalidations sent with If-None-Match
//   - astronews_cache_not_modified_total (Counter): 304 answers
//   - astronews_cache_purged_keys_total (Counter): keys removed on refresh
//   - astronews_cache_errors_total{operation} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - astronews_rate_limit_remaining (Gauge): quota left in the source window, -1 if unknown
//   - astronews_rate_limit_blocks_total (Counter): requests refused locally while throttled
//   - astronews_rate_limit_throttled_total (Counter): 429 responses received
//
// Example Prometheus Queries:
//
//   # Duplicate rate per accepted page
//   rate(astronews_feed_duplicate_articles_total[5m]) /
//   rate(astronews_feed_page_fetches_total{outcome="success"}[5m])
//
//   # Cache Hit Rate
//   sum(rate(astronews_cache_hits_total[5m])) /
//   (sum(rate(astronews_cache_hits_total[5m])) + sum(rate(astronews_cache_misses_total[5m])))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(astronews_feed_page_fetch_duration_seconds_bucket[5m]))
