// Package metrics exposes the Prometheus registry used by the catalog
// packages. Metrics are defined in their respective packages and
// registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all catalog metrics use.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the registered metrics.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokedex_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - pokedex_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokedex_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - pokedex_retries_total{error_class} (Counter): Retry attempts by error class
//   - pokedex_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - pokedex_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retries
//
// Cache Metrics (pkg/cache):
//   - pokedex_cache_hits_total{layer} (Counter): Cache hits by layer (redis, memory)
//   - pokedex_cache_misses_total{layer} (Counter): Cache misses by layer
//   - pokedex_cache_size_bytes{layer} (Gauge): Bytes written by layer
//   - pokedex_cache_negative_hits_total (Counter): Lookups answered by a remembered failure
//   - pokedex_304_responses_total (Counter): 304 Not Modified responses
//   - pokedex_conditional_requests_total (Counter): Conditional requests sent
//   - pokedex_cache_errors_total{operation} (Counter): Cache operation errors
//
// Breaker Metrics (pkg/breaker):
//   - pokedex_breaker_state{name} (Gauge): 0=closed, 1=open, 2=half_open
//   - pokedex_breaker_rejections_total{name} (Counter): Requests rejected while open
//   - pokedex_breaker_opens_total{name} (Counter): Times the circuit opened
//
// Paging Metrics (pkg/pagination):
//   - pokedex_pages_loaded_total{outcome} (Counter): LoadMore outcomes
//   - pokedex_empty_page_retries_total (Counter): Empty-page retries
//   - pokedex_page_error_retries_total (Counter): Page fetch retries after errors
//   - pokedex_probe_fetches_total{result} (Counter): Probe fetches after exhausted empty retries
//   - pokedex_accumulated_entries (Gauge): Entries in the incremental list
//   - pokedex_batch_fetch_failures_total (Counter): Per-id fetches dropped from a batch
//
// Detail Metrics (pkg/hydrator):
//   - pokedex_hydration_fetches_total{result} (Counter): Detail fetches by result
//   - pokedex_detail_cache_entries (Gauge): Entries in the detail cache
//
// Session Metrics (pkg/coordinator, pkg/budget):
//   - pokedex_strategy_runs_total{strategy, result} (Counter): Strategy runs (ok, fallback)
//   - pokedex_strategy_duration_seconds{strategy} (Histogram): Eager strategy duration
//   - pokedex_stale_results_total (Counter): Results dropped after a criteria change
//   - pokedex_load_triggers_total{source} (Counter): Load triggers (sentinel, scroll)
//   - pokedex_render_budget_cap (Gauge): Current render cap
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokedex_cache_hits_total[5m])) /
//   (sum(rate(pokedex_cache_hits_total[5m])) + sum(rate(pokedex_cache_misses_total[5m])))
//
//   # Strategy Fallback Rate
//   sum(rate(pokedex_strategy_runs_total{result="fallback"}[5m])) /
//   sum(rate(pokedex_strategy_runs_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokedex_request_duration_seconds_bucket[5m]))
