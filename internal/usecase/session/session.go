// Package session keeps one combined query per operation and runs search,
// scroll, fact and delete requests against it.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/usecase/compose"
)

// DefaultDateLayout renders extreme dates.
const DefaultDateLayout = "2006-01-02"

// Session holds the combined query of one operation over a set of datasets.
// A Session is not safe for concurrent use.
type Session struct {
	backend    Backend
	facts      FactMerger
	bulk       Deleter
	composer   Composer
	datasets   []domain.Dataset
	q          query.Combined
	dateLayout string
	scrollTTL  string
	logger     *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithComposer replaces the default composer.
func WithComposer(c Composer) Option {
	return func(s *Session) { s.composer = c }
}

// WithDateLayout sets the Go time layout of ExtremeDates.
func WithDateLayout(layout string) Option {
	return func(s *Session) {
		if layout != "" {
			s.dateLayout = layout
		}
	}
}

// WithScrollTTL sets the cursor keep-alive of session scrolls.
func WithScrollTTL(ttl string) Option {
	return func(s *Session) { s.scrollTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session over datasets with an empty combined query.
func New(backend Backend, facts FactMerger, bulk Deleter, datasets []domain.Dataset, opts ...Option) *Session {
	s := &Session{
		backend:    backend,
		facts:      facts,
		bulk:       bulk,
		composer:   compose.New(),
		datasets:   append([]domain.Dataset(nil), datasets...),
		q:          query.New(),
		dateLayout: DefaultDateLayout,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Datasets returns the active datasets.
func (s *Session) Datasets() []domain.Dataset {
	return append([]domain.Dataset(nil), s.datasets...)
}

// Build replaces the session query with one composed from p.
func (s *Session) Build(p compose.Params) error {
	q, err := s.composer.Compose(p)
	if err != nil {
		return fmt.Errorf("compose query: %w", err)
	}
	s.q = q
	return nil
}

// Query returns a copy of the session query.
func (s *Session) Query() query.Combined { return s.q.Clone() }

// Load replaces the session query.
func (s *Session) Load(q query.Combined) { s.q = q.Clone() }

// SetParam sets a top-level search body parameter of the main query.
func (s *Session) SetParam(key string, value any) error {
	if err := s.q.Main.SetParam(key, value); err != nil {
		return fmt.Errorf("set parameter: %w", err)
	}
	return nil
}

// IsCombinedQueryEmpty reports whether the session query constrains nothing.
func (s *Session) IsCombinedQueryEmpty() bool { return s.q.IsEmpty() }

// MergeWith conjoins other's main buckets into the session query.
func (s *Session) MergeWith(other query.Combined) { s.q.MergeWith(other) }

// MergeWithJSON validates raw as a combined query and merges it. On error
// the session query is unchanged.
func (s *Session) MergeWithJSON(raw []byte) error {
	other, err := query.Parse(raw)
	if err != nil {
		return fmt.Errorf("merge query: %w", err)
	}
	s.q.MergeWith(other)
	return nil
}

func (s *Session) index() (string, error) {
	if len(s.datasets) == 0 {
		return "", domain.ErrNoDatasets
	}
	return domain.JoinIndices(s.datasets), nil
}

// Search runs the main query over all active datasets.
func (s *Session) Search(ctx context.Context) (*db.SearchResponse, error) {
	return s.PerformQuery(ctx, s.q.Main.Body(nil))
}

// PerformQuery runs an arbitrary search body over all active datasets.
func (s *Session) PerformQuery(ctx context.Context, body any) (*db.SearchResponse, error) {
	index, err := s.index()
	if err != nil {
		return nil, err
	}
	resp, err := s.backend.Search(ctx, index, body)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return resp, nil
}

// MultiSearch runs several searches in one round trip.
func (s *Session) MultiSearch(ctx context.Context, queries []db.MultiQuery) ([]db.SearchResponse, error) {
	resp, err := s.backend.MultiSearch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("multi-search: %w", err)
	}
	return resp, nil
}

// TotalDocuments counts documents matched by the main query.
func (s *Session) TotalDocuments(ctx context.Context) (int, error) {
	resp, err := s.PerformQuery(ctx, s.q.Main.Body(map[string]any{"size": 0, "track_total_hits": true}))
	if err != nil {
		return 0, err
	}
	return resp.Hits.Total.Value, nil
}

// FactsMap resolves the fact annotations of docIDs for the session query.
func (s *Session) FactsMap(ctx context.Context, docIDs []string) (domfacts.Map, error) {
	m, err := s.facts.FactsMap(ctx, s.datasets, s.q, docIDs)
	if err != nil {
		return domfacts.Map{}, fmt.Errorf("facts map: %w", err)
	}
	return m, nil
}

// FieldsWithFacts lists document paths carrying facts, per fact type.
func (s *Session) FieldsWithFacts(ctx context.Context) (map[domfacts.FactType][]string, error) {
	out, err := s.facts.FieldsWithFacts(ctx, s.datasets)
	if err != nil {
		return nil, fmt.Errorf("fields with facts: %w", err)
	}
	return out, nil
}

// Delete removes every document matched by the main query from each active
// dataset and returns the number of documents sent for deletion.
func (s *Session) Delete(ctx context.Context, ttl string) (int, error) {
	if len(s.datasets) == 0 {
		return 0, domain.ErrNoDatasets
	}
	if ttl == "" {
		ttl = s.scrollTTL
	}
	total := 0
	for _, d := range s.datasets {
		n, err := s.bulk.Delete(ctx, d, s.q.Main, ttl)
		total += n
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", d.Index, err)
		}
	}
	return total, nil
}
