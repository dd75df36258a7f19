package client

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/pokedex-catalog/internal/testutil"
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

func TestIDFromURL(t *testing.T) {
	tests := []struct {
		ref     string
		want    int
		wantErr bool
	}{
		{"https://pokeapi.co/api/v2/pokemon/25/", 25, false},
		{"https://pokeapi.co/api/v2/pokemon/10034", 10034, false},
		{"http://127.0.0.1:4000/pokemon/1/", 1, false},
		{"https://pokeapi.co/api/v2/pokemon/pikachu/", 0, true},
		{"https://pokeapi.co/api/v2/pokemon/0/", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := IDFromURL(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IDFromURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IDFromURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_FetchTotalCount(t *testing.T) {
	mock := newMock(t, 250)
	c, _ := newTestClient(t, mock)

	got, err := c.FetchTotalCount(context.Background())
	if err != nil {
		t.Fatalf("FetchTotalCount() error = %v", err)
	}
	if got != 250 {
		t.Errorf("FetchTotalCount() = %v, want 250", got)
	}
}

func TestClient_FetchThinList(t *testing.T) {
	mock := newMock(t, 250)
	c, _ := newTestClient(t, mock)

	refs, err := c.FetchThinList(context.Background(), 20, 240)
	if err != nil {
		t.Fatalf("FetchThinList() error = %v", err)
	}
	if len(refs) != 10 {
		t.Fatalf("len = %d, want 10", len(refs))
	}
	if refs[0].ID != 241 || refs[0].Name != "entry-0241" {
		t.Errorf("refs[0] = %+v, want id 241", refs[0])
	}
	if refs[0].Ref == "" {
		t.Error("Ref is empty")
	}
}

func TestClient_FetchPage(t *testing.T) {
	mock := newMock(t, 250)
	mock.SetResponse(testutil.PokemonPath(5), testutil.NewNotFoundResponse())
	c, _ := newTestClient(t, mock)

	page, err := c.FetchPage(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page) != 99 {
		t.Fatalf("len = %d, want 99 (id 5 dropped)", len(page))
	}
	for i, e := range page {
		if e.IsThin() {
			t.Errorf("page[%d] is thin", i)
		}
		if i > 0 && e.ID <= page[i-1].ID {
			t.Errorf("page out of order at %d: %d after %d", i, e.ID, page[i-1].ID)
		}
	}

	tail, err := c.FetchPage(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(tail) != 50 {
		t.Errorf("len = %d, want 50 at the end of the catalog", len(tail))
	}

	empty, err := c.FetchPage(context.Background(), 100, 300)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len = %d, want 0 past the end", len(empty))
	}
}

func TestClient_FetchByGeneration(t *testing.T) {
	mock := newMock(t, 260)
	c, _ := newTestClient(t, mock)
	ctx := context.Background()

	gen2, err := c.FetchByGeneration(ctx, "2")
	if err != nil {
		t.Fatalf("FetchByGeneration() error = %v", err)
	}
	if len(gen2) != 100 {
		t.Fatalf("len = %d, want 100", len(gen2))
	}
	if gen2[0].ID != 152 || gen2[99].ID != 251 {
		t.Errorf("range = %d..%d, want 152..251", gen2[0].ID, gen2[99].ID)
	}

	// Ids beyond the served catalog are dropped.
	gen3, err := c.FetchByGeneration(ctx, "3")
	if err != nil {
		t.Fatalf("FetchByGeneration() error = %v", err)
	}
	if len(gen3) != 9 {
		t.Errorf("len = %d, want 9", len(gen3))
	}

	if _, err := c.FetchByGeneration(ctx, "all"); !errors.Is(err, catalog.ErrUnknownGeneration) {
		t.Errorf("FetchByGeneration(all) error = %v, want ErrUnknownGeneration", err)
	}
}

func TestClient_FetchByType(t *testing.T) {
	mock := newMock(t, 60)
	c, _ := newTestClient(t, mock)

	entries, err := c.FetchByType(context.Background(), "flying")
	if err != nil {
		t.Fatalf("FetchByType() error = %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("len = %d, want 20", len(entries))
	}
	for _, e := range entries {
		if e.ID%3 != 0 || !e.HasType("flying") {
			t.Errorf("entry %d is not flying", e.ID)
		}
	}
}

func TestClient_SearchByName(t *testing.T) {
	mock := newMock(t, 120)
	c, _ := newTestClient(t, mock)
	ctx := context.Background()

	tests := []struct {
		name    string
		term    string
		limit   int
		wantIDs []int
	}{
		{"prefix capped", "entry-00", 3, []int{1, 2, 3}},
		{"exact", "ENTRY-0110", 10, []int{110}},
		{"suffix", "-011", 0, []int{110, 111, 112, 113, 114, 115, 116, 117, 118, 119}},
		{"blank", "  ", 10, nil},
		{"no match", "mew", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.SearchByName(ctx, tt.term, tt.limit)
			if err != nil {
				t.Fatalf("SearchByName() error = %v", err)
			}
			ids := catalog.IDs(got)
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("SearchByName() = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("SearchByName()[%d] = %d, want %d", i, ids[i], tt.wantIDs[i])
				}
			}
		})
	}
}
