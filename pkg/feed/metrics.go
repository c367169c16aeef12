package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pageFetchesTotal counts fetches by kind (initial, more, refresh) and outcome.
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astronews_feed_page_fetches_total",
		Help: "Total feed page fetches by kind and outcome",
	}, []string{"kind", "outcome"})

	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astronews_feed_page_fetch_duration_seconds",
		Help:    "Feed page fetch duration in seconds by kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"kind"})

	duplicateArticlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astronews_feed_duplicate_articles_total",
		Help: "Articles dropped because their id was already in the feed",
	})

	// ignoredTriggersTotal counts LoadMore/Refresh calls that did not start a fetch.
	ignoredTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astronews_feed_ignored_triggers_total",
		Help: "Feed triggers ignored by reason",
	}, []string{"op", "reason"})
)
