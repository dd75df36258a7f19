package hydrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingFetcher returns full entries and counts fetches per id.
type countingFetcher struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]bool
	gate  chan struct{}
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{calls: make(map[int]int), fail: make(map[int]bool)}
}

func (f *countingFetcher) FetchEntry(ctx context.Context, id int) (catalog.Entry, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.fail[id] {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return fullEntry(id), nil
}

func (f *countingFetcher) count(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *countingFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func fullEntry(id int) catalog.Entry {
	return catalog.Entry{
		ID:    id,
		Name:  "full",
		Types: []string{"normal"},
		Stats: []catalog.Stat{{Name: catalog.StatAttack, BaseStat: id}},
	}
}

func TestHydrate_StoresEntries(t *testing.T) {
	f := newCountingFetcher()
	h := New(f, DefaultConfig())

	if got := h.Hydrate(context.Background(), []int{1, 2, 3}); got != 3 {
		t.Errorf("Hydrate() = %d, want 3", got)
	}
	if got := h.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	for _, id := range []int{1, 2, 3} {
		if h.IsPending(id) {
			t.Errorf("IsPending(%d) = true after completion", id)
		}
	}

	// Cached ids are not fetched again.
	h.Hydrate(context.Background(), []int{1, 2, 3})
	if got := f.total(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}

func TestHydrate_OverlappingCallsFetchOnce(t *testing.T) {
	f := newCountingFetcher()
	f.gate = make(chan struct{})
	h := New(f, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Hydrate(ctx, []int{10, 11, 12})
		}()
	}

	close(f.gate)
	wg.Wait()

	for _, id := range []int{10, 11, 12} {
		if got := f.count(id); got != 1 {
			t.Errorf("fetches for id %d = %d, want 1", id, got)
		}
	}
	if got := h.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestHydrate_FailureIsPermanent(t *testing.T) {
	f := newCountingFetcher()
	f.fail[7] = true
	h := New(f, DefaultConfig())
	ctx := context.Background()

	if got := h.Hydrate(ctx, []int{6, 7}); got != 1 {
		t.Errorf("Hydrate() = %d, want 1", got)
	}
	h.Hydrate(ctx, []int{7})

	if got := f.count(7); got != 1 {
		t.Errorf("fetches for failed id = %d, want 1", got)
	}
	if !h.Failed(7) {
		t.Error("Failed(7) = false, want true")
	}
	if h.IsPending(7) {
		t.Error("failed id should not stay pending")
	}

	thin := catalog.Thin(7, "thin")
	if got := h.WithSource(thin); !got.IsThin() {
		t.Error("WithSource() of a failed id should return the thin entry")
	}

	if _, err := h.Fetch(ctx, 7); !errors.Is(err, ErrHydrationFailed) {
		t.Errorf("Fetch(7) error = %v, want ErrHydrationFailed", err)
	}
}

func TestWithSource(t *testing.T) {
	f := newCountingFetcher()
	h := New(f, DefaultConfig())
	h.Hydrate(context.Background(), []int{1})

	tests := []struct {
		name     string
		entry    catalog.Entry
		wantName string
	}{
		{"thin with cached version", catalog.Thin(1, "thin"), "full"},
		{"thin without cached version", catalog.Thin(2, "thin"), "thin"},
		{"full entry unchanged", catalog.Entry{ID: 1, Name: "own", Types: []string{"fire"}, Stats: []catalog.Stat{{Name: "hp", BaseStat: 1}}}, "own"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.WithSource(tt.entry).Name; got != tt.wantName {
				t.Errorf("WithSource().Name = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestHydrateForSort(t *testing.T) {
	entries := []catalog.Entry{catalog.Thin(1, "a"), fullEntry(2), catalog.Thin(3, "c")}

	f := newCountingFetcher()
	h := New(f, DefaultConfig())
	ctx := context.Background()

	if got := h.HydrateForSort(ctx, entries, catalog.SortSpec{Field: catalog.SortByName, Direction: catalog.Ascending}); got != 0 {
		t.Errorf("HydrateForSort(name) = %d, want 0", got)
	}
	if got := f.total(); got != 0 {
		t.Errorf("fetch calls for name sort = %d, want 0", got)
	}

	if got := h.HydrateForSort(ctx, entries, catalog.SortSpec{Field: catalog.SortByAttack, Direction: catalog.Descending}); got != 2 {
		t.Errorf("HydrateForSort(attack) = %d, want 2", got)
	}
	if f.count(2) != 0 {
		t.Error("full entry should not be fetched")
	}
}

func TestHydrateMissingTypes_Bounded(t *testing.T) {
	entries := make([]catalog.Entry, 80)
	for i := range entries {
		entries[i] = catalog.Thin(i+1, "thin")
	}

	f := newCountingFetcher()
	h := New(f, DefaultConfig())

	if got := h.HydrateMissingTypes(context.Background(), entries); got != 50 {
		t.Errorf("HydrateMissingTypes() = %d, want 50", got)
	}
	if got := f.total(); got != 50 {
		t.Errorf("fetch calls = %d, want 50", got)
	}
	if f.count(51) != 0 {
		t.Error("entries beyond the first 50 should not be fetched")
	}
}

func TestStore_IgnoresThin(t *testing.T) {
	h := New(newCountingFetcher(), DefaultConfig())
	h.Store(catalog.Thin(1, "thin"))
	h.Store(fullEntry(2))

	if _, ok := h.Get(1); ok {
		t.Error("thin entry should not be cached")
	}
	if _, ok := h.Get(2); !ok {
		t.Error("full entry should be cached")
	}
}
