package session

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/mapping"
)

// MappedField is a field descriptor with the datasets declaring it.
type MappedField struct {
	Field    mapping.Field    `json:"field"`
	Datasets []domain.Dataset `json:"datasets"`
}

// MappedFields flattens the mappings of the active datasets. Equal
// descriptors from several datasets are reported once, sorted by path.
func (s *Session) MappedFields(ctx context.Context) ([]MappedField, error) {
	index, err := s.index()
	if err != nil {
		return nil, err
	}
	raw, err := s.backend.GetMapping(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	mappings, err := mapping.ParseIndexMappings(raw)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]int)
	var out []MappedField
	for _, im := range mappings {
		fields, err := mapping.Decode(im.Tree)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", im.Dataset.Index, err)
		}
		for _, f := range fields {
			i, ok := byKey[f.Key()]
			if !ok {
				i = len(out)
				byKey[f.Key()] = i
				out = append(out, MappedField{Field: f})
			}
			if !slices.Contains(out[i].Datasets, im.Dataset) {
				out[i].Datasets = append(out[i].Datasets, im.Dataset)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b MappedField) int {
		return cmp.Compare(a.Field.Path, b.Field.Path)
	})
	return out, nil
}

// ColumnNames returns the sorted, distinct paths of non-reserved fields.
func (s *Session) ColumnNames(ctx context.Context) ([]string, error) {
	fields, err := s.MappedFields(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if mapping.IsReserved(f.Field.Path) {
			continue
		}
		names = append(names, f.Field.Path)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

type valueAgg struct {
	Value *float64 `json:"value"`
}

// ExtremeDates returns the earliest and latest value of a date field over
// the active datasets, in the session date layout and UTC. An empty result
// set fails with domain.ErrNoData.
func (s *Session) ExtremeDates(ctx context.Context, field string) (minDate, maxDate string, err error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"max_date": map[string]any{"max": map[string]any{"field": field}},
			"min_date": map[string]any{"min": map[string]any{"field": field}},
		},
	}
	resp, err := s.PerformQuery(ctx, body)
	if err != nil {
		return "", "", err
	}

	var lo, hi valueAgg
	if err := decodeAgg(resp.Aggregations, "min_date", &lo); err != nil {
		return "", "", err
	}
	if err := decodeAgg(resp.Aggregations, "max_date", &hi); err != nil {
		return "", "", err
	}
	if lo.Value == nil || hi.Value == nil {
		return "", "", fmt.Errorf("extreme dates of %s: %w", field, domain.ErrNoData)
	}
	return s.formatMillis(*lo.Value), s.formatMillis(*hi.Value), nil
}

func (s *Session) formatMillis(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(s.dateLayout)
}

func decodeAgg(aggs map[string]json.RawMessage, name string, out any) error {
	raw, ok := aggs[name]
	if !ok {
		return fmt.Errorf("aggregation %s missing: %w", name, domain.ErrNoData)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode aggregation %s: %w", name, err)
	}
	return nil
}

// ClearReadOnlyBlock lifts the read-only-allow-delete block of each active dataset.
func (s *Session) ClearReadOnlyBlock(ctx context.Context) error {
	if len(s.datasets) == 0 {
		return domain.ErrNoDatasets
	}
	body := map[string]any{
		"index": map[string]any{
			"blocks": map[string]any{"read_only_allow_delete": "false"},
		},
	}
	for _, d := range s.datasets {
		if err := s.backend.PutSettings(ctx, d.Index, body); err != nil {
			return fmt.Errorf("clear read-only block of %s: %w", d.Index, err)
		}
	}
	return nil
}
