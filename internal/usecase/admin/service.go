// Package admin lists and maintains backend indices.
package admin

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/mapping"
)

// typelessMapping is the name ParseIndexMappings reports for typeless indices.
const typelessMapping = "_doc"

// Service handles index administration.
type Service struct {
	backend Backend
	logger  *zap.Logger
}

// New creates an admin service. logger may be nil.
func New(backend Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

// Indices lists backend indices sorted by name.
func (s *Service) Indices(ctx context.Context) ([]db.IndexInfo, error) {
	out, err := s.backend.CatIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	slices.SortFunc(out, func(a, b db.IndexInfo) int { return cmp.Compare(a.Index, b.Index) })
	return out, nil
}

// Mappings returns the sorted mapping names of index.
func (s *Service) Mappings(ctx context.Context, index string) ([]string, error) {
	mappings, err := s.indexMappings(ctx, index)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if m.Dataset.Index == index {
			names = append(names, m.Dataset.Mapping)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// OpenIndex opens a closed index.
func (s *Service) OpenIndex(ctx context.Context, index string) error {
	if err := s.backend.OpenIndex(ctx, index); err != nil {
		return fmt.Errorf("open index %s: %w", index, err)
	}
	return nil
}

// CloseIndex closes an open index.
func (s *Service) CloseIndex(ctx context.Context, index string) error {
	if err := s.backend.CloseIndex(ctx, index); err != nil {
		return fmt.Errorf("close index %s: %w", index, err)
	}
	return nil
}

// DeleteIndex removes an index with all its documents.
func (s *Service) DeleteIndex(ctx context.Context, index string) error {
	if err := s.backend.DeleteIndex(ctx, index); err != nil {
		return fmt.Errorf("delete index %s: %w", index, err)
	}
	s.logger.Info("index deleted", zap.String("index", index))
	return nil
}

// UpdateMappingStructure adds field with props to the dataset mapping, and
// the fact container, when they are absent. Existing definitions are never
// replaced. It reports whether the mapping was changed.
func (s *Service) UpdateMappingStructure(ctx context.Context, dataset domain.Dataset, field string, props map[string]any) (bool, error) {
	if field == "" {
		return false, fmt.Errorf("update mapping: field is required: %w", domain.ErrInvalidArgument)
	}
	mappings, err := s.indexMappings(ctx, dataset.Index)
	if err != nil {
		return false, err
	}
	tree, ok := findTree(mappings, dataset)
	if !ok {
		return false, fmt.Errorf("update mapping: %s/%s: %w", dataset.Index, dataset.Mapping, domain.ErrSchema)
	}

	added := make(map[string]any)
	if _, exists := tree[field]; !exists {
		added[field] = props
	}
	if _, exists := tree[domain.ReservedFactField]; !exists {
		added[domain.ReservedFactField] = domain.FactProperties()
	}
	if len(added) == 0 {
		return false, nil
	}

	mappingType := dataset.Mapping
	if mappingType == typelessMapping {
		mappingType = ""
	}
	body := map[string]any{"properties": added}
	if err := s.backend.PutMapping(ctx, dataset.Index, mappingType, body); err != nil {
		return false, fmt.Errorf("update mapping of %s: %w", dataset.Index, err)
	}
	s.logger.Info("mapping updated",
		zap.String("index", dataset.Index),
		zap.String("mapping", dataset.Mapping),
		zap.Int("added", len(added)),
	)
	return true, nil
}

func (s *Service) indexMappings(ctx context.Context, index string) ([]mapping.IndexMapping, error) {
	raw, err := s.backend.GetMapping(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("get mapping of %s: %w", index, err)
	}
	mappings, err := mapping.ParseIndexMappings(raw)
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// findTree picks the schema of dataset. An empty mapping name selects the
// first mapping of the index.
func findTree(mappings []mapping.IndexMapping, dataset domain.Dataset) (map[string]mapping.Property, bool) {
	for _, m := range mappings {
		if m.Dataset.Index != dataset.Index {
			continue
		}
		if dataset.Mapping == "" || m.Dataset.Mapping == dataset.Mapping {
			return m.Tree, true
		}
	}
	return nil, false
}
