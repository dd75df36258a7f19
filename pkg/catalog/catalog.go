package catalog

import (
	"context"
	"errors"
)

// Policy constants.
const (
	// PageSize is the incremental page size.
	PageSize = 100

	// FallbackTotal substitutes for the total count when it cannot be fetched.
	FallbackTotal = 1302
)

var (
	// ErrNotFound is returned by FetchEntry for an invalid id.
	ErrNotFound = errors.New("catalog entry not found")

	// ErrUnknownGeneration is returned for generation tags without a known range.
	ErrUnknownGeneration = errors.New("unknown generation")
)

// PageFetcher fetches incremental pages.
type PageFetcher interface {
	// FetchPage returns up to limit full entries starting at offset. The
	// result may be shorter than limit near the end of the catalog.
	FetchPage(ctx context.Context, limit, offset int) ([]Entry, error)

	// FetchTotalCount returns the catalog size. Callers treat it as best
	// effort and substitute FallbackTotal on failure.
	FetchTotalCount(ctx context.Context) (int, error)
}

// EntryFetcher fetches a single full entry.
type EntryFetcher interface {
	FetchEntry(ctx context.Context, id int) (Entry, error)
}

// Catalog is the remote data access surface.
type Catalog interface {
	PageFetcher
	EntryFetcher

	// FetchByGeneration returns every full entry of a generation.
	FetchByGeneration(ctx context.Context, tag string) ([]Entry, error)

	// FetchByType returns the entire membership of a type as full entries.
	FetchByType(ctx context.Context, tag string) ([]Entry, error)

	// FetchThinList returns id/name/ref records for cheap id discovery.
	FetchThinList(ctx context.Context, limit, offset int) ([]ThinRef, error)
}
