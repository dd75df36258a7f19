package hydrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hydrationFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_hydration_fetches_total",
			Help: "Detail lookups by result (cached, fetched, failed)",
		},
		[]string{"result"},
	)

	cachedEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokedex_detail_cache_entries",
			Help: "Full entries held in the detail cache",
		},
	)
)
