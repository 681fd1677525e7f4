package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// Search runs a search request against a comma-joined index list.
func (c *Client) Search(ctx context.Context, index string, body any) (*db.SearchResponse, error) {
	req, err := jsonRequest(db.OpSearch, http.MethodPost, indexPath(index, "_search"), body)
	if err != nil {
		return nil, err
	}
	var resp db.SearchResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MultiSearch runs several searches in one round trip. Responses keep the
// order of queries; a failed entry fails the whole call.
func (c *Client) MultiSearch(ctx context.Context, queries []db.MultiQuery) ([]db.SearchResponse, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, q := range queries {
		if err := enc.Encode(map[string]string{"index": q.Index}); err != nil {
			return nil, fmt.Errorf("%s: encode header: %w", db.OpMultiSearch, err)
		}
		if err := enc.Encode(q.Body); err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", db.OpMultiSearch, err)
		}
	}

	req := request{
		op:          db.OpMultiSearch,
		method:      http.MethodPost,
		path:        "/_msearch",
		body:        buf.Bytes(),
		contentType: contentNDJSON,
	}
	var resp struct {
		Responses []db.SearchResponse `json:"responses"`
	}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Responses) != len(queries) {
		return nil, &db.Error{
			Op:     db.OpMultiSearch,
			Reason: fmt.Sprintf("got %d responses for %d queries", len(resp.Responses), len(queries)),
		}
	}
	for i, r := range resp.Responses {
		if len(r.Error) > 0 {
			return nil, &db.Error{
				Op:     db.OpMultiSearch,
				Status: r.Status,
				Reason: fmt.Sprintf("query %d (%s): %s", i, queries[i].Index, strings.TrimSpace(string(r.Error))),
			}
		}
	}
	return resp.Responses, nil
}

// OpenScroll starts a scroll over index and returns the first page.
func (c *Client) OpenScroll(ctx context.Context, index string, body any, ttl string) (scroll.Page, error) {
	req, err := jsonRequest(db.OpScrollOpen, http.MethodPost, indexPath(index, "_search"), body)
	if err != nil {
		return scroll.Page{}, err
	}
	req.query = url.Values{"scroll": {ttl}}
	var resp db.SearchResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return scroll.Page{}, err
	}
	return toPage(&resp), nil
}

// ContinueScroll fetches the next page of an open scroll.
func (c *Client) ContinueScroll(ctx context.Context, scrollID, ttl string) (scroll.Page, error) {
	req, err := jsonRequest(db.OpScrollContinue, http.MethodPost, "/_search/scroll",
		map[string]string{"scroll": ttl, "scroll_id": scrollID})
	if err != nil {
		return scroll.Page{}, err
	}
	var resp db.SearchResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return scroll.Page{}, err
	}
	return toPage(&resp), nil
}

// ClearScroll releases scroll contexts. Already expired contexts are not an error.
func (c *Client) ClearScroll(ctx context.Context, scrollIDs ...string) error {
	if len(scrollIDs) == 0 {
		return nil
	}
	req, err := jsonRequest(db.OpScrollClear, http.MethodDelete, "/_search/scroll",
		map[string][]string{"scroll_id": scrollIDs})
	if err != nil {
		return err
	}
	req.tolerate = []int{http.StatusNotFound}
	return c.do(ctx, req, nil)
}

func toPage(resp *db.SearchResponse) scroll.Page {
	return scroll.Page{
		ScrollID: resp.ScrollID,
		Total:    resp.Hits.Total.Value,
		Hits:     resp.Hits.Hits,
	}
}
