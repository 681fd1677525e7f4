package facts

import (
	"context"

	"github.com/kailas-cloud/factdex/internal/db"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
)

// Searcher runs restricted fact searches and fact aggregations.
type Searcher interface {
	Search(ctx context.Context, index string, body any) (*db.SearchResponse, error)
	MultiSearch(ctx context.Context, queries []db.MultiQuery) ([]db.SearchResponse, error)
}

// LocalCache is the in-process recency tier.
type LocalCache interface {
	Lookup(key string) (domfacts.DocMap, bool)
	Set(key string, value domfacts.DocMap)
}

// RemoteCache is the shared tier. Failures surface as misses.
type RemoteCache interface {
	Get(ctx context.Context, fingerprint string) (domfacts.DocMap, bool)
	Set(ctx context.Context, fingerprint string, m domfacts.DocMap)
}
