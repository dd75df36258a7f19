package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
)

// generationBatchSize is the number of ids fetched per generation batch.
const generationBatchSize = 50

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listResponse struct {
	Count   int             `json:"count"`
	Results []namedResource `json:"results"`
}

type pokemonResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Height int    `json:"height"`
	Weight int    `json:"weight"`
	Types  []struct {
		Slot int           `json:"slot"`
		Type namedResource `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int           `json:"base_stat"`
		Stat     namedResource `json:"stat"`
	} `json:"stats"`
}

type typeResponse struct {
	Name    string `json:"name"`
	Pokemon []struct {
		Slot    int           `json:"slot"`
		Pokemon namedResource `json:"pokemon"`
	} `json:"pokemon"`
}

func (p pokemonResponse) entry() catalog.Entry {
	e := catalog.Entry{
		ID:     p.ID,
		Name:   p.Name,
		Height: p.Height,
		Weight: p.Weight,
	}
	for _, t := range p.Types {
		e.Types = append(e.Types, t.Type.Name)
	}
	for _, s := range p.Stats {
		e.Stats = append(e.Stats, catalog.Stat{Name: s.Stat.Name, BaseStat: s.BaseStat})
	}
	return e
}

// IDFromURL parses the trailing numeric segment of a resource URL, e.g.
// https://pokeapi.co/api/v2/pokemon/25/ yields 25.
func IDFromURL(ref string) (int, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return 0, fmt.Errorf("parse resource url: %w", err)
	}
	id, err := strconv.Atoi(path.Base(strings.TrimRight(u.Path, "/")))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("no id in resource url %q", ref)
	}
	return id, nil
}

func (c *Client) getJSON(ctx context.Context, p string, query url.Values, out any) error {
	body, err := c.Get(ctx, p, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, limit, offset int) (listResponse, error) {
	var resp listResponse
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	err := c.getJSON(ctx, "pokemon", query, &resp)
	return resp, err
}

// FetchTotalCount implements catalog.PageFetcher.
func (c *Client) FetchTotalCount(ctx context.Context) (int, error) {
	resp, err := c.list(ctx, 1, 0)
	if err != nil {
		return 0, fmt.Errorf("fetch total count: %w", err)
	}
	return resp.Count, nil
}

// FetchThinList implements catalog.Catalog. Results whose URL carries no
// id are skipped.
func (c *Client) FetchThinList(ctx context.Context, limit, offset int) ([]catalog.ThinRef, error) {
	resp, err := c.list(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch thin list: %w", err)
	}

	refs := make([]catalog.ThinRef, 0, len(resp.Results))
	for _, r := range resp.Results {
		id, err := IDFromURL(r.URL)
		if err != nil {
			c.logger.Debug().Err(err).Str("name", r.Name).Msg("Skipping list result without id")
			continue
		}
		refs = append(refs, catalog.ThinRef{ID: id, Name: r.Name, Ref: r.URL})
	}
	return refs, nil
}

// FetchEntry implements catalog.EntryFetcher.
func (c *Client) FetchEntry(ctx context.Context, id int) (catalog.Entry, error) {
	var resp pokemonResponse
	if err := c.getJSON(ctx, "pokemon/"+strconv.Itoa(id)+"/", nil, &resp); err != nil {
		return catalog.Entry{}, fmt.Errorf("fetch entry %d: %w", id, err)
	}
	return resp.entry(), nil
}

// FetchPage implements catalog.PageFetcher: one thin list call followed by
// parallel detail fetches. Entries whose detail fetch fails are dropped.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) ([]catalog.Entry, error) {
	refs, err := c.FetchThinList(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	c.logger.Debug().Int("offset", offset).Int("page_size", limit).Int("ids", len(ids)).Msg("Fetching page details")
	return pagination.FetchEach(ctx, c, ids, c.batchConfig())
}

// FetchByGeneration implements catalog.Catalog. The generation's id range
// is fetched in batches; failed ids are dropped.
func (c *Client) FetchByGeneration(ctx context.Context, tag string) ([]catalog.Entry, error) {
	r, err := catalog.GenerationRange(tag)
	if err != nil {
		return nil, err
	}

	ids := r.IDs()
	out := make([]catalog.Entry, 0, len(ids))
	for start := 0; start < len(ids); start += generationBatchSize {
		end := min(start+generationBatchSize, len(ids))
		batch, err := pagination.FetchEach(ctx, c, ids[start:end], c.batchConfig())
		if err != nil {
			return nil, fmt.Errorf("generation %s batch at %d: %w", tag, ids[start], err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// FetchByType implements catalog.Catalog.
func (c *Client) FetchByType(ctx context.Context, tag string) ([]catalog.Entry, error) {
	var resp typeResponse
	if err := c.getJSON(ctx, "type/"+url.PathEscape(tag)+"/", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch type %s: %w", tag, err)
	}

	ids := make([]int, 0, len(resp.Pokemon))
	for _, p := range resp.Pokemon {
		id, err := IDFromURL(p.Pokemon.URL)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	c.logger.Debug().Str("type", tag).Int("members", len(ids)).Msg("Type membership resolved")
	return pagination.FetchEach(ctx, c, ids, c.batchConfig())
}
