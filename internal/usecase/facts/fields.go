package facts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
)

// typeFilter selects documents carrying facts of one type.
func typeFilter(t domfacts.FactType) query.Clause {
	switch t {
	case domfacts.TypeFactStr:
		return query.Nested(domain.ReservedFactField, query.Exists(domain.ReservedFactField+".str_val"), true)
	case domfacts.TypeFactNum:
		return query.Nested(domain.ReservedFactField, query.Exists(domain.ReservedFactField+".num_val"), true)
	default:
		return query.MatchAll()
	}
}

// fieldsAggs finds the document path holding the most documents with facts.
func fieldsAggs(t domfacts.FactType) map[string]any {
	name := string(t)
	return map[string]any{
		name: map[string]any{
			"nested": map[string]any{"path": domain.ReservedFactField},
			"aggs": map[string]any{
				name: map[string]any{
					"terms": map[string]any{
						"field": domain.ReservedFactField + ".doc_path",
						"size":  1,
						"order": map[string]any{"documents.doc_count": "desc"},
					},
					"aggs": map[string]any{
						"documents": map[string]any{"reverse_nested": map[string]any{}},
					},
				},
			},
		},
	}
}

type bucketsAgg struct {
	Buckets []struct {
		Key string `json:"key"`
	} `json:"buckets"`
}

// FieldsWithFacts lists, per fact type, the document paths carrying facts of
// that type. All (type, dataset) pairs go out in one multi-search.
func (s *Service) FieldsWithFacts(
	ctx context.Context, datasets []domain.Dataset,
) (map[domfacts.FactType][]string, error) {
	out := make(map[domfacts.FactType][]string, len(domfacts.AllTypes))
	for _, t := range domfacts.AllTypes {
		out[t] = []string{}
	}
	if len(datasets) == 0 {
		return out, nil
	}

	queries := make([]db.MultiQuery, 0, len(domfacts.AllTypes)*len(datasets))
	for _, t := range domfacts.AllTypes {
		for _, d := range datasets {
			queries = append(queries, db.MultiQuery{
				Index: d.Index,
				Body: map[string]any{
					"size":  0,
					"query": typeFilter(t),
					"aggs":  fieldsAggs(t),
				},
			})
		}
	}

	responses, err := s.search.MultiSearch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("fields with facts: %w", err)
	}

	for _, resp := range responses {
		for _, t := range domfacts.AllTypes {
			keys, err := parseFieldBuckets(resp.Aggregations, string(t))
			if err != nil {
				return nil, fmt.Errorf("fields with facts: %s: %w", t, err)
			}
			out[t] = append(out[t], keys...)
		}
	}
	return out, nil
}

func parseFieldBuckets(aggs map[string]json.RawMessage, name string) ([]string, error) {
	outer, ok := aggs[name]
	if !ok {
		return nil, nil
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(outer, &nested); err != nil {
		return nil, fmt.Errorf("decode nested aggregation: %w", err)
	}
	inner, ok := nested[name]
	if !ok {
		return nil, nil
	}
	var terms bucketsAgg
	if err := json.Unmarshal(inner, &terms); err != nil {
		return nil, fmt.Errorf("decode terms aggregation: %w", err)
	}
	keys := make([]string, 0, len(terms.Buckets))
	for _, b := range terms.Buckets {
		keys = append(keys, b.Key)
	}
	return keys, nil
}
