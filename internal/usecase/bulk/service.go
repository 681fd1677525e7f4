// Package bulk applies document mutations to every document matched by a
// query, page by page through a scroll cursor.
package bulk

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
	"github.com/kailas-cloud/factdex/internal/metrics"
)

// DefaultPageSize is the number of hits fetched per cursor page.
const DefaultPageSize = 100

// Service runs cursor-driven bulk mutations.
type Service struct {
	backend  Backend
	pageSize int
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxPagesPerSecond throttles bulk calls. Zero disables throttling.
func WithMaxPagesPerSecond(pps float64) Option {
	return func(s *Service) {
		if pps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(pps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a bulk mutator.
func New(b Backend, opts ...Option) *Service {
	s := &Service{backend: b, pageSize: DefaultPageSize, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Delete removes every document of dataset matched by main. It issues one
// bulk call per fetched page, the final empty page included, and returns the
// number of documents sent for deletion. Cancellation stops after the
// current page; pages already applied stay deleted.
func (s *Service) Delete(ctx context.Context, dataset domain.Dataset, main query.Main, ttl string) (int, error) {
	body := main.ScrollBody(map[string]any{"size": s.pageSize, "_source": false})

	deleted, pages := 0, 0
	err := scroll.Run(ctx, s.backend, dataset.Index, body, ttl, func(p scroll.Page) error {
		actions := make([]db.BulkAction, 0, len(p.Hits))
		for _, h := range p.Hits {
			actions = append(actions, db.BulkAction{
				Op:    db.BulkDelete,
				Index: dataset.Index,
				Type:  dataset.Mapping,
				ID:    h.ID,
			})
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
		if _, err := s.backend.Bulk(ctx, actions); err != nil {
			return fmt.Errorf("bulk delete page %d: %w", pages, err)
		}
		metrics.BulkPagesTotal.WithLabelValues(db.BulkDelete).Inc()
		pages++
		deleted += len(actions)
		return nil
	})

	s.logger.Info("Bulk delete finished",
		zap.String("index", dataset.Index),
		zap.Int("pages", pages),
		zap.Int("deleted", deleted),
		zap.Error(err),
	)
	return deleted, err
}

// PostDocuments sends partial updates for ids, docs[i] going to ids[i].
func (s *Service) PostDocuments(ctx context.Context, dataset domain.Dataset, docs []map[string]any, ids []string) error {
	if len(docs) != len(ids) {
		return fmt.Errorf("%d documents for %d ids: %w", len(docs), len(ids), domain.ErrInvalidArgument)
	}
	actions := make([]db.BulkAction, 0, len(ids))
	for i, id := range ids {
		actions = append(actions, db.BulkAction{
			Op:    db.BulkUpdate,
			Index: dataset.Index,
			Type:  dataset.Mapping,
			ID:    id,
			Doc:   docs[i],
		})
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if _, err := s.backend.Bulk(ctx, actions); err != nil {
		return fmt.Errorf("bulk update: %w", err)
	}
	metrics.BulkPagesTotal.WithLabelValues(db.BulkUpdate).Inc()
	return nil
}

// Reindex re-indexes dataset in place so mapping changes apply to stored documents.
func (s *Service) Reindex(ctx context.Context, dataset domain.Dataset) error {
	if err := s.backend.UpdateByQuery(ctx, dataset.Index, nil); err != nil {
		return fmt.Errorf("update by query: %w", err)
	}
	return nil
}

// UpdateDocuments sends partial updates and then re-indexes the dataset.
func (s *Service) UpdateDocuments(ctx context.Context, dataset domain.Dataset, docs []map[string]any, ids []string) error {
	if err := s.PostDocuments(ctx, dataset, docs, ids); err != nil {
		return err
	}
	return s.Reindex(ctx, dataset)
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return nil
}
