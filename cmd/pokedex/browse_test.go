package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/pokedex-catalog/internal/testutil"
)

func runBrowse(t *testing.T, entries int, args ...string) []string {
	t.Helper()
	mock := testutil.NewMockPokeAPI(testutil.GenerateEntries(entries))
	t.Cleanup(mock.Close)
	testConfig(t, mock)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"browse", "--config-dir", t.TempDir()}, args...))

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestBrowse_Incremental(t *testing.T) {
	lines := runBrowse(t, 150, "--limit", "3")

	require.Len(t, lines, 4)
	assert.Equal(t, "strategy=incremental entries=100 shown=3 has_more=true", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "#0001 entry-0001"), lines[1])
}

func TestBrowse_ExtraPages(t *testing.T) {
	lines := runBrowse(t, 150, "--limit", "1", "--pages", "2")

	assert.Contains(t, lines[0], "entries=150")
	assert.Contains(t, lines[0], "has_more=false")
}

func TestBrowse_TypeIntersection(t *testing.T) {
	lines := runBrowse(t, 30, "--types", "fire,flying")

	assert.Contains(t, lines[0], "strategy=type-intersection")
	for _, line := range lines[1:] {
		assert.Contains(t, line, "fire/flying")
	}
}

func TestBrowse_SortByTotalStatsDesc(t *testing.T) {
	lines := runBrowse(t, 20, "--sort", "total-stats", "--dir", "desc", "--limit", "5")

	require.Len(t, lines, 6)
	prev := -1
	for _, line := range lines[1:] {
		var total int
		idx := strings.LastIndex(line, "total=")
		require.NotEqual(t, -1, idx, line)
		_, err := fmt.Sscan(line[idx+len("total="):], &total)
		require.NoError(t, err)
		if prev >= 0 {
			assert.LessOrEqual(t, total, prev)
		}
		prev = total
	}
}

func TestBrowse_InvalidFlags(t *testing.T) {
	mock := testutil.NewMockPokeAPI(nil)
	t.Cleanup(mock.Close)
	testConfig(t, mock)

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"browse", "--config-dir", t.TempDir(), "--dir", "up"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
