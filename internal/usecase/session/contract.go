package session

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
	"github.com/kailas-cloud/factdex/internal/usecase/compose"
)

// Backend is the search, cursor and settings surface a session needs.
type Backend interface {
	Search(ctx context.Context, index string, body any) (*db.SearchResponse, error)
	MultiSearch(ctx context.Context, queries []db.MultiQuery) ([]db.SearchResponse, error)
	scroll.Backend
	GetMapping(ctx context.Context, indices string) (json.RawMessage, error)
	PutSettings(ctx context.Context, index string, body any) error
}

// Composer builds combined queries from structured parameters.
type Composer interface {
	Compose(p compose.Params) (query.Combined, error)
}

// FactMerger resolves fact annotations for the session query.
type FactMerger interface {
	FactsMap(ctx context.Context, datasets []domain.Dataset, q query.Combined, docIDs []string) (domfacts.Map, error)
	FieldsWithFacts(ctx context.Context, datasets []domain.Dataset) (map[domfacts.FactType][]string, error)
}

// Deleter removes matched documents through a cursor.
type Deleter interface {
	Delete(ctx context.Context, dataset domain.Dataset, main query.Main, ttl string) (int, error)
}
