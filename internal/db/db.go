package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// Backend is the document search backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Backend interface {
	Pinger
	Searcher
	scroll.Backend
	BulkWriter
	IndexAdmin
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs search requests.
type Searcher interface {
	Search(ctx context.Context, index string, body any) (*SearchResponse, error)
	MultiSearch(ctx context.Context, queries []MultiQuery) ([]SearchResponse, error)
}

// BulkWriter applies document mutations.
type BulkWriter interface {
	Bulk(ctx context.Context, actions []BulkAction) (*BulkResponse, error)
	UpdateByQuery(ctx context.Context, index string, body any) error
}

// IndexAdmin manages index lifecycle, mappings and settings.
type IndexAdmin interface {
	CatIndices(ctx context.Context) ([]IndexInfo, error)
	GetMapping(ctx context.Context, indices string) (json.RawMessage, error)
	PutMapping(ctx context.Context, index, mappingType string, body any) error
	PutSettings(ctx context.Context, index string, body any) error
	OpenIndex(ctx context.Context, index string) error
	CloseIndex(ctx context.Context, index string) error
	DeleteIndex(ctx context.Context, index string) error
}

// KVStore is the remote cache key-value surface.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// KVStoreCloser is a KVStore owning a connection.
type KVStoreCloser interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
