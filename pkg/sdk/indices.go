package factdex

import (
	"context"
	"fmt"
	"time"

	adminuc "github.com/kailas-cloud/factdex/internal/usecase/admin"
)

// IndexService administers backend indices.
type IndexService struct {
	svc *adminuc.Service
	obs *observer
}

// List returns every index sorted by name.
func (s *IndexService) List(ctx context.Context) (indices []IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("indices.list", start, noDocs, err) }()

	indices, err = s.svc.Indices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	return indices, nil
}

// Mappings returns the mapping names of an index.
func (s *IndexService) Mappings(ctx context.Context, index string) ([]string, error) {
	names, err := s.svc.Mappings(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("mappings: %w", err)
	}
	return names, nil
}

// Open opens a closed index.
func (s *IndexService) Open(ctx context.Context, index string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("indices.open", start, noDocs, err) }()
	return s.svc.OpenIndex(ctx, index)
}

// Close closes an index.
func (s *IndexService) Close(ctx context.Context, index string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("indices.close", start, noDocs, err) }()
	return s.svc.CloseIndex(ctx, index)
}

// Delete drops an index.
func (s *IndexService) Delete(ctx context.Context, index string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("indices.delete", start, noDocs, err) }()
	return s.svc.DeleteIndex(ctx, index)
}

// AddField adds a field and the fact container to a dataset mapping. It
// reports whether the mapping changed.
func (s *IndexService) AddField(ctx context.Context, dataset Dataset, field string, props map[string]any) (changed bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("indices.add_field", start, noDocs, err) }()
	return s.svc.UpdateMappingStructure(ctx, dataset, field, props)
}
