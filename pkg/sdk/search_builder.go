package factdex

import (
	"context"
	"fmt"
)

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	idx *TypedIndex[T]

	params    Params
	limit     int
	withFacts bool
}

// Match requires text in field.
func (b *SearchBuilder[T]) Match(field, text string) *SearchBuilder[T] {
	b.params.Constraints = append(b.params.Constraints, FieldConstraint{Field: field, Text: text})
	return b
}

// Phrase requires the exact phrase in field.
func (b *SearchBuilder[T]) Phrase(field, text string) *SearchBuilder[T] {
	b.params.Constraints = append(b.params.Constraints, FieldConstraint{
		Field: field, Text: text, Match: MatchPhrase,
	})
	return b
}

// Exclude rejects documents with text in field.
func (b *SearchBuilder[T]) Exclude(field, text string) *SearchBuilder[T] {
	b.params.Constraints = append(b.params.Constraints, FieldConstraint{
		Field: field, Text: text, Operator: MustNot,
	})
	return b
}

// Fact requires a fact annotation. An empty value matches any value.
func (b *SearchBuilder[T]) Fact(name, value string) *SearchBuilder[T] {
	b.params.Facts = append(b.params.Facts, FactConstraint{Name: name, Value: value})
	return b
}

// WithoutFact rejects documents carrying the fact.
func (b *SearchBuilder[T]) WithoutFact(name, value string) *SearchBuilder[T] {
	b.params.Facts = append(b.params.Facts, FactConstraint{Name: name, Value: value, Exclude: true})
	return b
}

// Limit sets the maximum number of results.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.limit = n
	return b
}

// WithFacts attaches the matched include fact spans to each hit.
func (b *SearchBuilder[T]) WithFacts() *SearchBuilder[T] {
	b.withFacts = true
	return b
}

// Do executes the search.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]TypedHit[T], error) {
	s := b.idx.client.Session(b.idx.datasets...)
	if err := s.Build(b.params); err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := s.SetParam("_source", b.idx.fields); err != nil {
		return nil, err
	}
	if b.limit > 0 {
		if err := s.SetParam("size", b.limit); err != nil {
			return nil, err
		}
	}

	res, err := s.Search(ctx)
	if err != nil {
		return nil, err
	}
	hits, err := decodeHits[T](res.Hits)
	if err != nil {
		return nil, err
	}
	if !b.withFacts || len(b.params.Facts) == 0 {
		return hits, nil
	}

	m, err := s.FactsMap(ctx, res.IDs())
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Facts = m.Include[hits[i].ID]
	}
	return hits, nil
}
