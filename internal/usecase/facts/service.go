// Package facts resolves the fact annotations of a result page for the fact
// sub-queries of a combined query.
package facts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
)

// MaxRestrictedSize caps the hits of one restricted fact search.
const MaxRestrictedSize = 500

// Service merges per-sub-query fact maps with a two-tier cache in front of
// the backend.
type Service struct {
	search     Searcher
	local      LocalCache
	remote     RemoteCache
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRemote adds the shared cache tier behind the local one.
func WithRemote(r RemoteCache) Option {
	return func(s *Service) { s.remote = r }
}

// WithCacheMetrics records local tier hits and misses.
// cacheTotal is a counter vec with labels "tier" and "result".
func WithCacheMetrics(cacheTotal *prometheus.CounterVec) Option {
	return func(s *Service) { s.cacheTotal = cacheTotal }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a fact merger.
func New(search Searcher, local LocalCache, opts ...Option) *Service {
	s := &Service{search: search, local: local, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FactsMap resolves the facts of docIDs for q's fact sub-queries. Include
// maps are merged by intersection, exclude maps by union; the include
// partition is not reduced by the exclude one.
func (s *Service) FactsMap(
	ctx context.Context, datasets []domain.Dataset, q query.Combined, docIDs []string,
) (domfacts.Map, error) {
	out := domfacts.NewMap()
	if q.Facts.IsEmpty() {
		return out, nil
	}
	if len(datasets) == 0 {
		return out, domain.ErrNoDatasets
	}
	index := domain.JoinIndices(datasets)

	if q.Facts.TotalInclude() > 0 {
		maps, err := s.resolveAll(ctx, index, q.Facts.Include, docIDs)
		if err != nil {
			return domfacts.Map{}, fmt.Errorf("include facts: %w", err)
		}
		out.Include = domfacts.MergeMaps(maps, false)
		out.HasInclude = true
	}
	if q.Facts.TotalExclude() > 0 {
		maps, err := s.resolveAll(ctx, index, q.Facts.Exclude, docIDs)
		if err != nil {
			return domfacts.Map{}, fmt.Errorf("exclude facts: %w", err)
		}
		out.Exclude = domfacts.MergeMaps(maps, true)
		out.HasExclude = true
	}
	return out, nil
}

func (s *Service) resolveAll(
	ctx context.Context, index string, subs []query.SubQuery, docIDs []string,
) ([]domfacts.DocMap, error) {
	maps := make([]domfacts.DocMap, 0, len(subs))
	for i, sub := range subs {
		m, err := s.resolve(ctx, index, sub.Restricted(docIDs))
		if err != nil {
			return nil, fmt.Errorf("sub-query %d: %w", i, err)
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// restrictedKey is the cache identity of one restricted lookup.
type restrictedKey struct {
	Index string         `json:"index"`
	Query query.SubQuery `json:"query"`
}

func (s *Service) resolve(ctx context.Context, index string, sub query.SubQuery) (domfacts.DocMap, error) {
	key, err := query.Fingerprint(restrictedKey{Index: index, Query: sub})
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	if m, ok := s.local.Lookup(key); ok {
		s.inc("hit")
		return m, nil
	}
	s.inc("miss")

	// The shared lookup outlives any single caller; each caller still
	// stops waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if s.remote != nil {
			if m, ok := s.remote.Get(flightCtx, key); ok {
				s.local.Set(key, m)
				return m, nil
			}
		}
		m, err := s.fetch(flightCtx, index, sub)
		if err != nil {
			return nil, err
		}
		s.local.Set(key, m)
		if s.remote != nil {
			s.remote.Set(flightCtx, key, m)
		}
		return m, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fact lookup: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("Fact lookup shared", zap.String("fingerprint", key))
	}
	return res.Val.(domfacts.DocMap), nil
}

// fetch runs the restricted search and collects fact spans per document.
// Matching nested objects come from inner hits; documents without inner
// hits contribute their whole fact container.
func (s *Service) fetch(ctx context.Context, index string, sub query.SubQuery) (domfacts.DocMap, error) {
	resp, err := s.search.Search(ctx, index, sub.Body(map[string]any{"size": MaxRestrictedSize}))
	if err != nil {
		return nil, fmt.Errorf("restricted search: %w", err)
	}

	out := domfacts.DocMap{}
	for _, hit := range resp.Hits.Hits {
		objects, err := factObjects(hit)
		if err != nil {
			s.logger.Warn("Skipping undecodable facts",
				zap.String("index", hit.Index),
				zap.String("id", hit.ID),
				zap.Error(err),
			)
			continue
		}
		for _, o := range objects {
			spans, err := o.Expand()
			if err != nil {
				s.logger.Warn("Skipping fact with bad spans", zap.String("id", hit.ID), zap.Error(err))
				continue
			}
			out.Add(hit.ID, o.DocPath, spans...)
		}
	}
	return out, nil
}

func factObjects(hit domain.Hit) ([]domfacts.Object, error) {
	if inner, ok := hit.InnerHits[domain.ReservedFactField]; ok {
		objects := make([]domfacts.Object, 0, len(inner.Hits.Hits))
		for _, h := range inner.Hits.Hits {
			var o domfacts.Object
			if err := json.Unmarshal(h.Source, &o); err != nil {
				return nil, fmt.Errorf("decode inner hit: %w", err)
			}
			objects = append(objects, o)
		}
		return objects, nil
	}

	if len(hit.Source) == 0 {
		return nil, nil
	}
	var src map[string]json.RawMessage
	if err := json.Unmarshal(hit.Source, &src); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	raw, ok := src[domain.ReservedFactField]
	if !ok {
		return nil, nil
	}
	var objects []domfacts.Object
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("decode fact container: %w", err)
	}
	return objects, nil
}

func (s *Service) inc(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues("recency", result).Inc()
	}
}
