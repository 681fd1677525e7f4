package domain

import (
	"fmt"
	"strings"
)

// ReservedFactField is the nested container holding fact annotations.
const ReservedFactField = "texta_facts"

// Dataset is one searchable collection in the backend.
type Dataset struct {
	Index   string `json:"index" yaml:"index"`
	Mapping string `json:"mapping,omitempty" yaml:"mapping"`
}

// JoinIndices returns the comma-joined index list used in multi-index URLs.
func JoinIndices(datasets []Dataset) string {
	indices := make([]string, 0, len(datasets))
	for _, d := range datasets {
		indices = append(indices, d.Index)
	}
	return strings.Join(indices, ",")
}

// DocRef identifies a single document in a dataset.
type DocRef struct {
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id"`
}

// FactProperties is the mapping definition of the reserved fact container.
func FactProperties() map[string]any {
	return map[string]any{
		"type": "nested",
		"properties": map[string]any{
			"doc_path": map[string]any{"type": "keyword"},
			"fact":     map[string]any{"type": "keyword"},
			"num_val":  map[string]any{"type": "long"},
			"spans":    map[string]any{"type": "keyword"},
			"str_val":  map[string]any{"type": "keyword"},
		},
	}
}

// ParseDatasets reads a comma-separated list of "index" or "index/mapping"
// entries. Blank entries are skipped.
func ParseDatasets(s string) ([]Dataset, error) {
	var out []Dataset
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		index, mapping, _ := strings.Cut(part, "/")
		if index == "" || strings.Contains(mapping, "/") {
			return nil, fmt.Errorf("dataset %q: %w", part, ErrInvalidArgument)
		}
		out = append(out, Dataset{Index: index, Mapping: mapping})
	}
	if len(out) == 0 {
		return nil, ErrNoDatasets
	}
	return out, nil
}
