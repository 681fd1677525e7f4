package factdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/usecase/session"
)

// Session holds one combined query over a set of datasets.
// A Session is not safe for concurrent use.
type Session struct {
	inner *session.Session
	obs   *observer
}

// Datasets returns the datasets the session queries.
func (s *Session) Datasets() []Dataset { return s.inner.Datasets() }

// Build replaces the session query with one composed from p.
func (s *Session) Build(p Params) error {
	return s.inner.Build(p)
}

// Load replaces the session query.
func (s *Session) Load(q CombinedQuery) { s.inner.Load(q) }

// LoadJSON replaces the session query with a serialized combined query.
func (s *Session) LoadJSON(raw []byte) error {
	q, err := query.Parse(raw)
	if err != nil {
		return fmt.Errorf("load query: %w", err)
	}
	s.inner.Load(q)
	return nil
}

// Query returns a copy of the session query.
func (s *Session) Query() CombinedQuery { return s.inner.Query() }

// MergeWith folds another combined query into the session query.
func (s *Session) MergeWith(q CombinedQuery) { s.inner.MergeWith(q) }

// MergeWithJSON folds a serialized main query into the session query.
func (s *Session) MergeWithJSON(raw []byte) error { return s.inner.MergeWithJSON(raw) }

// SetParam sets a top-level search parameter such as size or sort.
func (s *Session) SetParam(key string, value any) error {
	return s.inner.SetParam(key, value)
}

// Empty reports whether the session query matches everything.
func (s *Session) Empty() bool { return s.inner.IsCombinedQueryEmpty() }

// Search runs the session query.
func (s *Session) Search(ctx context.Context) (res SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search", start, res.Total, err) }()

	resp, err := s.inner.Search(ctx)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return SearchResult{
		Total: resp.Hits.Total.Value,
		Took:  resp.Took,
		Hits:  resp.Hits.Hits,
	}, nil
}

// Count returns the number of documents matched by the session query.
func (s *Session) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("count", start, n, err) }()

	n, err = s.inner.TotalDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// FactsMap returns the fact spans of docIDs that satisfy the session's
// fact sub-queries.
func (s *Session) FactsMap(ctx context.Context, docIDs []string) (m FactsMap, err error) {
	start := time.Now()
	defer func() { s.obs.observe("facts_map", start, noDocs, err) }()

	m, err = s.inner.FactsMap(ctx, docIDs)
	if err != nil {
		return FactsMap{}, fmt.Errorf("facts map: %w", err)
	}
	return m, nil
}

// FactFields returns the document fields carrying facts, per fact type.
func (s *Session) FactFields(ctx context.Context) (fields map[FactType][]string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("fact_fields", start, noDocs, err) }()

	fields, err = s.inner.FieldsWithFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fact fields: %w", err)
	}
	return fields, nil
}

// Scroll walks every document matched by the session query. Return ErrStop
// from fn to end early.
func (s *Session) Scroll(ctx context.Context, req ScrollRequest, fn func(Page) error) (err error) {
	start := time.Now()
	seen := 0
	defer func() { s.obs.observe("scroll", start, seen, err) }()

	count := func(p Page) error {
		seen += len(p.Hits)
		return fn(p)
	}
	if err = s.inner.Scroll(ctx, req, count); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// DocIDs returns up to limit matched document references.
func (s *Session) DocIDs(ctx context.Context, limit int) (refs []DocRef, err error) {
	start := time.Now()
	defer func() { s.obs.observe("doc_ids", start, len(refs), err) }()

	refs, err = s.inner.ScrollDocIDs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("doc ids: %w", err)
	}
	return refs, nil
}

// MoreLikeThis finds documents similar to the session hits and accepted
// documents.
func (s *Session) MoreLikeThis(ctx context.Context, req MLTRequest) (res SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("more_like_this", start, res.Total, err) }()

	resp, err := s.inner.MoreLikeThis(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("more like this: %w", err)
	}
	return SearchResult{
		Total: resp.Hits.Total.Value,
		Took:  resp.Took,
		Hits:  resp.Hits.Hits,
	}, nil
}

// Delete removes every matched document and returns the count.
func (s *Session) Delete(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("delete", start, n, err) }()

	n, err = s.inner.Delete(ctx, "")
	if err != nil {
		return n, fmt.Errorf("delete: %w", err)
	}
	return n, nil
}

// Fields returns every mapped field path of the datasets.
func (s *Session) Fields(ctx context.Context) (fields []MappedField, err error) {
	start := time.Now()
	defer func() { s.obs.observe("fields", start, noDocs, err) }()

	fields, err = s.inner.MappedFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	return fields, nil
}

// Columns returns the displayable field paths, facts excluded.
func (s *Session) Columns(ctx context.Context) ([]string, error) {
	cols, err := s.inner.ColumnNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	return cols, nil
}

// ExtremeDates returns the formatted min and max values of a date field.
func (s *Session) ExtremeDates(ctx context.Context, field string) (minDate, maxDate string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("extreme_dates", start, noDocs, err) }()

	minDate, maxDate, err = s.inner.ExtremeDates(ctx, field)
	if err != nil {
		return "", "", fmt.Errorf("extreme dates: %w", err)
	}
	return minDate, maxDate, nil
}

// ClearReadOnlyBlock lifts the flood-stage write block of the datasets.
func (s *Session) ClearReadOnlyBlock(ctx context.Context) error {
	if err := s.inner.ClearReadOnlyBlock(ctx); err != nil {
		return fmt.Errorf("clear read-only block: %w", err)
	}
	return nil
}
