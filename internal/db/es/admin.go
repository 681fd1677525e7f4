package es

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"

	"github.com/kailas-cloud/factdex/internal/db"
)

// CatIndices lists indices sorted by name.
func (c *Client) CatIndices(ctx context.Context) ([]db.IndexInfo, error) {
	req := request{
		op:     db.OpCatIndices,
		method: http.MethodGet,
		path:   "/_cat/indices",
		query:  url.Values{"format": {"json"}},
	}
	var out []db.IndexInfo
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// GetMapping returns the raw mapping response for a comma-joined index list.
func (c *Client) GetMapping(ctx context.Context, indices string) (json.RawMessage, error) {
	req := request{op: db.OpMapping, method: http.MethodGet, path: indexPath(indices, "_mapping")}
	var out json.RawMessage
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutMapping updates the mapping of index. A non-empty mappingType targets
// the typed endpoint of older backends.
func (c *Client) PutMapping(ctx context.Context, index, mappingType string, body any) error {
	endpoint := "_mapping"
	if mappingType != "" {
		endpoint += "/" + mappingType
	}
	req, err := jsonRequest(db.OpPutMapping, http.MethodPut, indexPath(index, endpoint), body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// PutSettings updates dynamic index settings.
func (c *Client) PutSettings(ctx context.Context, index string, body any) error {
	req, err := jsonRequest(db.OpSettings, http.MethodPut, indexPath(index, "_settings"), body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// OpenIndex opens a closed index.
func (c *Client) OpenIndex(ctx context.Context, index string) error {
	return c.do(ctx, request{op: db.OpOpenIndex, method: http.MethodPost, path: indexPath(index, "_open")}, nil)
}

// CloseIndex closes an index.
func (c *Client) CloseIndex(ctx context.Context, index string) error {
	return c.do(ctx, request{op: db.OpCloseIndex, method: http.MethodPost, path: indexPath(index, "_close")}, nil)
}

// DeleteIndex deletes an index.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	return c.do(ctx, request{op: db.OpDeleteIndex, method: http.MethodDelete, path: indexPath(index, "")}, nil)
}
