package factdex

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedIndex is a generic view over datasets whose documents decode into T.
// The source fields are inferred from T's json tags at construction time.
type TypedIndex[T any] struct {
	client   *Client
	datasets []Dataset
	fields   []string
}

// NewIndex creates a typed view over the given datasets.
func NewIndex[T any](client *Client, datasets ...Dataset) (*TypedIndex[T], error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	fields, err := sourceFields[T]()
	if err != nil {
		return nil, err
	}
	return &TypedIndex[T]{client: client, datasets: datasets, fields: fields}, nil
}

// Fields returns the source paths requested for T.
func (idx *TypedIndex[T]) Fields() []string {
	return append([]string(nil), idx.fields...)
}

// Search returns a fluent search builder for this index.
func (idx *TypedIndex[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx}
}

// Scroll walks every document of the datasets, decoded into T.
func (idx *TypedIndex[T]) Scroll(ctx context.Context, fn func([]TypedHit[T]) error) error {
	s := idx.client.Session(idx.datasets...)
	return s.Scroll(ctx, ScrollRequest{Fields: idx.fields, MatchAll: true}, func(p Page) error {
		if len(p.Hits) == 0 {
			return nil
		}
		hits, err := decodeHits[T](p.Hits)
		if err != nil {
			return err
		}
		return fn(hits)
	})
}

// TypedHit is a decoded search result.
type TypedHit[T any] struct {
	Item  T
	ID    string
	Index string
	Score float64
	// Facts holds the spans of matched include facts per path, when requested.
	Facts map[string][]Span
}

func decodeHits[T any](hits []Hit) ([]TypedHit[T], error) {
	out := make([]TypedHit[T], len(hits))
	for i, h := range hits {
		out[i] = TypedHit[T]{ID: h.ID, Index: h.Index}
		if h.Score != nil {
			out[i].Score = *h.Score
		}
		if len(h.Source) == 0 {
			continue
		}
		if err := json.Unmarshal(h.Source, &out[i].Item); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
	}
	return out, nil
}
