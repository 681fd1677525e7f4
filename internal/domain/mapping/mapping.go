// Package mapping flattens backend schema trees into field descriptors.
package mapping

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// TypeNested marks a nested-object node.
const TypeNested = "nested"

// Property is one node of a schema tree.
type Property struct {
	Type       string              `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
}

// Field is a flattened searchable field.
type Field struct {
	Path         string   `json:"path"`
	Type         string   `json:"type"`
	NestedLayers []string `json:"nested_layers,omitempty"`
}

// Key returns a stable identity for grouping equal descriptors.
func (f Field) Key() string {
	return f.Path + "|" + f.Type + "|" + strings.Join(f.NestedLayers, ".")
}

// Decode flattens tree depth-first. The reserved fact container collapses to
// a single text descriptor. Leaves without a type fail with a SchemaError.
func Decode(tree map[string]Property) ([]Field, error) {
	return decode(tree, nil, nil)
}

func decode(tree map[string]Property, path, layers []string) ([]Field, error) {
	var out []Field
	for _, name := range sortedKeys(tree) {
		node := tree[name]
		switch {
		case node.Properties != nil && name == domain.ReservedFactField:
			out = append(out, Field{Path: name, Type: "text"})

		case node.Properties != nil:
			childLayers := slices.Clone(layers)
			if node.Type == TypeNested {
				childLayers = append(childLayers, name)
			}
			sub, err := decode(node.Properties, appendCopy(path, name), childLayers)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)

		default:
			fieldPath := strings.Join(appendCopy(path, name), ".")
			if node.Type == "" {
				return nil, domain.NewSchemaError(fieldPath, "leaf has no type")
			}
			out = append(out, Field{Path: fieldPath, Type: node.Type, NestedLayers: slices.Clone(layers)})
		}
	}
	return out, nil
}

// IsReserved reports whether path refers to the fact container.
func IsReserved(path string) bool {
	return strings.Contains(path, domain.ReservedFactField)
}

// IndexMapping is the schema tree of one (index, mapping) pair.
type IndexMapping struct {
	Dataset domain.Dataset
	Tree    map[string]Property
}

// ParseIndexMappings decodes a GET /{indices}/_mapping response. Both the
// typed layout {"mappings":{"<type>":{"properties":...}}} and the typeless
// layout {"mappings":{"properties":...}} are accepted; typeless mappings are
// reported under the name "_doc".
func ParseIndexMappings(body []byte) ([]IndexMapping, error) {
	var indices map[string]struct {
		Mappings map[string]json.RawMessage `json:"mappings"`
	}
	if err := json.Unmarshal(body, &indices); err != nil {
		return nil, fmt.Errorf("decode mappings: %w: %w", domain.ErrSchema, err)
	}

	var out []IndexMapping
	for _, index := range sortedKeys(indices) {
		mappings := indices[index].Mappings
		if raw, ok := mappings["properties"]; ok {
			tree, err := decodeTree(raw)
			if err != nil {
				return nil, fmt.Errorf("index %s: %w", index, err)
			}
			out = append(out, IndexMapping{Dataset: domain.Dataset{Index: index, Mapping: "_doc"}, Tree: tree})
			continue
		}
		for _, name := range sortedKeys(mappings) {
			var typed struct {
				Properties json.RawMessage `json:"properties"`
			}
			if err := json.Unmarshal(mappings[name], &typed); err != nil {
				return nil, fmt.Errorf("index %s mapping %s: %w: %w", index, name, domain.ErrSchema, err)
			}
			if len(typed.Properties) == 0 {
				continue
			}
			tree, err := decodeTree(typed.Properties)
			if err != nil {
				return nil, fmt.Errorf("index %s mapping %s: %w", index, name, err)
			}
			out = append(out, IndexMapping{Dataset: domain.Dataset{Index: index, Mapping: name}, Tree: tree})
		}
	}
	return out, nil
}

func decodeTree(raw json.RawMessage) (map[string]Property, error) {
	var tree map[string]Property
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode properties: %w: %w", domain.ErrSchema, err)
	}
	return tree, nil
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
