package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	strategyRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_strategy_runs_total",
			Help: "Strategy executions by kind and result (ok, fallback)",
		},
		[]string{"strategy", "result"},
	)

	strategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_strategy_duration_seconds",
			Help:    "Eager strategy execution time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	staleDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_stale_results_total",
			Help: "Results dropped because the criteria changed mid-flight",
		},
	)

	triggerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_load_triggers_total",
			Help: "Incremental load triggers by source (sentinel, scroll)",
		},
		[]string{"source"},
	)
)
