package db

import (
	"encoding/json"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// SearchResponse is the decoded body of a search or scroll request.
type SearchResponse struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	ScrollID     string                     `json:"_scroll_id,omitempty"`
	Hits         domain.HitList             `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	// Error is set on failed entries of a multi-search response.
	Error  json.RawMessage `json:"error,omitempty"`
	Status int             `json:"status,omitempty"`
}

// MultiQuery is one entry of a multi-search request.
type MultiQuery struct {
	Index string
	Body  any
}

// Bulk operation types.
const (
	BulkDelete = "delete"
	BulkUpdate = "update"
	BulkIndex  = "index"
)

// BulkAction is one document mutation of a bulk request.
type BulkAction struct {
	Op    string
	Index string
	Type  string
	ID    string
	// Doc is the update partial document or the full document to index.
	Doc any
}

// BulkResponse is the decoded body of a bulk request.
type BulkResponse struct {
	Took   int                   `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

// BulkItem is the per-document outcome of a bulk request.
type BulkItem struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Result string          `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Failed counts items that reported an error.
func (r *BulkResponse) Failed() int {
	n := 0
	for _, item := range r.Items {
		for _, res := range item {
			if len(res.Error) > 0 {
				n++
			}
		}
	}
	return n
}

// IndexInfo is one row of the index listing.
type IndexInfo struct {
	Health    string `json:"health"`
	Status    string `json:"status"`
	Index     string `json:"index"`
	UUID      string `json:"uuid"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
}
