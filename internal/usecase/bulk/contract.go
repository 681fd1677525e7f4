package bulk

import (
	"context"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// Writer applies bulk mutations.
type Writer interface {
	Bulk(ctx context.Context, actions []db.BulkAction) (*db.BulkResponse, error)
	UpdateByQuery(ctx context.Context, index string, body any) error
}

// Backend is the cursor and mutation surface the mutator needs.
type Backend interface {
	scroll.Backend
	Writer
}
