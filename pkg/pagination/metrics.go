package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_pages_loaded_total",
			Help: "LoadMore calls by outcome",
		},
		[]string{"outcome"},
	)

	emptyPageRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_empty_page_retries_total",
			Help: "Retries issued after an empty page",
		},
	)

	pageErrorRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_page_error_retries_total",
			Help: "Retries issued after a failed page fetch",
		},
	)

	probeFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_probe_fetches_total",
			Help: "Enlarged probe fetches by result",
		},
		[]string{"result"},
	)

	accumulatedEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokedex_accumulated_entries",
			Help: "Entries in the current incremental working set",
		},
	)

	batchFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_batch_fetch_failures_total",
			Help: "Per-id fetches dropped from a concurrent batch",
		},
	)
)
