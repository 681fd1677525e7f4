package admin

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/factdex/internal/db"
)

// Backend defines the index administration contract.
type Backend interface {
	CatIndices(ctx context.Context) ([]db.IndexInfo, error)
	GetMapping(ctx context.Context, indices string) (json.RawMessage, error)
	PutMapping(ctx context.Context, index, mappingType string, body any) error
	OpenIndex(ctx context.Context, index string) error
	CloseIndex(ctx context.Context, index string) error
	DeleteIndex(ctx context.Context, index string) error
}
