package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
)

// bulkMeta is the action line of a bulk request.
type bulkMeta struct {
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id,omitempty"`
}

// Bulk applies document mutations in one request. An empty action list
// returns an empty response without contacting the backend. Per-item
// failures are reported in the response, not as an error.
func (c *Client) Bulk(ctx context.Context, actions []db.BulkAction) (*db.BulkResponse, error) {
	if len(actions) == 0 {
		return &db.BulkResponse{}, nil
	}

	body, err := encodeBulk(actions)
	if err != nil {
		return nil, err
	}
	req := request{
		op:          db.OpBulk,
		method:      http.MethodPost,
		path:        "/_bulk",
		body:        body,
		contentType: contentNDJSON,
	}
	var resp db.BulkResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Errors {
		c.logger.Warn("Bulk request had item failures",
			zap.Int("actions", len(actions)),
			zap.Int("failed", resp.Failed()),
		)
	}
	return &resp, nil
}

func encodeBulk(actions []db.BulkAction) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		meta := map[string]bulkMeta{a.Op: {Index: a.Index, Type: a.Type, ID: a.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("%s: encode action: %w", db.OpBulk, err)
		}
		switch a.Op {
		case db.BulkDelete:
		case db.BulkUpdate:
			if err := enc.Encode(map[string]any{"doc": a.Doc}); err != nil {
				return nil, fmt.Errorf("%s: encode update: %w", db.OpBulk, err)
			}
		case db.BulkIndex:
			if err := enc.Encode(a.Doc); err != nil {
				return nil, fmt.Errorf("%s: encode document: %w", db.OpBulk, err)
			}
		default:
			return nil, fmt.Errorf("%s: unknown action %q", db.OpBulk, a.Op)
		}
	}
	return buf.Bytes(), nil
}

// UpdateByQuery re-indexes matching documents in place, refreshing the index
// and proceeding past version conflicts.
func (c *Client) UpdateByQuery(ctx context.Context, index string, body any) error {
	req, err := jsonRequest(db.OpUpdateByQuery, http.MethodPost, indexPath(index, "_update_by_query"), body)
	if err != nil {
		return err
	}
	req.query = url.Values{"refresh": {"true"}, "conflicts": {"proceed"}}
	return c.do(ctx, req, nil)
}
