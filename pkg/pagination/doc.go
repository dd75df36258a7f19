// Package pagination implements the incremental page engine and bounded
// concurrent per-id fetching.
//
// The Accumulator appends fixed-size pages of the unfiltered catalog to a
// deduplicated working set. Each LoadMore call is guarded so that at most
// one page fetch is in flight:
//
//	acc := pagination.NewAccumulator(catalogClient, pagination.DefaultConfig())
//	for acc.LoadMore(ctx) == pagination.OutcomeAppended {
//		render(acc.Items())
//	}
//
// Empty pages and failed fetches are retried locally with two distinct
// backoff policies (see pkg/retry). Once retries are exhausted the engine
// sets HasMore=false; no error reaches the caller.
//
// FetchEach fetches a set of ids through a bounded worker pool and drops
// ids whose fetch fails, so one bad id never aborts a batch.
package pagination
