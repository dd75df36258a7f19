package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
)

// DefaultSearchLimit caps the detail fetches of a name search.
const DefaultSearchLimit = 50

// SearchByName returns full entries whose name contains term, in catalog
// order, fetching at most limit details. An empty term returns nothing.
func (c *Client) SearchByName(ctx context.Context, term string, limit int) ([]catalog.Entry, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	total, err := c.FetchTotalCount(ctx)
	if err != nil || total <= 0 {
		total = catalog.FallbackTotal
	}

	refs, err := c.FetchThinList(ctx, total, 0)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	ids := make([]int, 0, limit)
	for _, r := range refs {
		if strings.Contains(strings.ToLower(r.Name), term) {
			ids = append(ids, r.ID)
			if len(ids) == limit {
				break
			}
		}
	}
	c.logger.Debug().Str("term", term).Int("matches", len(ids)).Msg("Name search resolved")

	return pagination.FetchEach(ctx, c, ids, c.batchConfig())
}
