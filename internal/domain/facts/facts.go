// Package facts models fact annotations attached to documents and the
// set-algebra used to combine per-query fact maps.
package facts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FactType is a class of fact values.
type FactType string

// Fact types stored in the fact container.
const (
	TypeFact    FactType = "fact"
	TypeFactStr FactType = "fact_str"
	TypeFactNum FactType = "fact_num"
)

// AllTypes lists fact types in the order they are aggregated.
var AllTypes = []FactType{TypeFact, TypeFactStr, TypeFactNum}

// Span is one fact occurrence inside a document field.
type Span struct {
	Fact   string   `json:"fact"`
	StrVal string   `json:"str_val,omitempty"`
	NumVal *float64 `json:"num_val,omitempty"`
	Start  int      `json:"start"`
	End    int      `json:"end"`
}

// DocMap maps document id -> fact path -> spans.
type DocMap map[string]map[string][]Span

// Add appends spans under doc and path.
func (m DocMap) Add(doc, path string, spans ...Span) {
	paths, ok := m[doc]
	if !ok {
		paths = make(map[string][]Span)
		m[doc] = paths
	}
	paths[path] = append(paths[path], spans...)
}

// Map is the result of a restricted fact lookup.
type Map struct {
	Include    DocMap `json:"include"`
	Exclude    DocMap `json:"exclude"`
	HasInclude bool   `json:"has_include"`
	HasExclude bool   `json:"has_exclude"`
}

// NewMap returns a map with empty partitions.
func NewMap() Map {
	return Map{Include: DocMap{}, Exclude: DocMap{}}
}

// MergeMaps combines per-query maps. The governing key set is the union of
// document ids when union is true, otherwise their intersection. For each
// governing id, span lists of every input containing it are concatenated in
// input order; ids outside the governing set are dropped entirely.
func MergeMaps(maps []DocMap, union bool) DocMap {
	out := DocMap{}
	if len(maps) == 0 {
		return out
	}

	governing := make(map[string]struct{}, len(maps[0]))
	for id := range maps[0] {
		governing[id] = struct{}{}
	}
	for _, m := range maps[1:] {
		if union {
			for id := range m {
				governing[id] = struct{}{}
			}
			continue
		}
		for id := range governing {
			if _, ok := m[id]; !ok {
				delete(governing, id)
			}
		}
	}

	for id := range governing {
		merged := make(map[string][]Span)
		for _, m := range maps {
			for path, spans := range m[id] {
				merged[path] = append(merged[path], spans...)
			}
		}
		out[id] = merged
	}
	return out
}

// Object is one entry of the fact container as stored in a document.
type Object struct {
	DocPath string          `json:"doc_path"`
	Fact    string          `json:"fact"`
	StrVal  string          `json:"str_val"`
	NumVal  *float64        `json:"num_val"`
	Spans   json.RawMessage `json:"spans"`
}

// Expand expands the object into one Span per stored position. Positions are
// stored as a JSON-encoded string "[[start, end], ...]" or as a plain array.
func (o Object) Expand() ([]Span, error) {
	positions, err := parsePositions(o.Spans)
	if err != nil {
		return nil, fmt.Errorf("fact %q at %q: %w", o.Fact, o.DocPath, err)
	}
	if len(positions) == 0 {
		return []Span{{Fact: o.Fact, StrVal: o.StrVal, NumVal: o.NumVal}}, nil
	}
	out := make([]Span, 0, len(positions))
	for _, p := range positions {
		out = append(out, Span{Fact: o.Fact, StrVal: o.StrVal, NumVal: o.NumVal, Start: p[0], End: p[1]})
	}
	return out, nil
}

func parsePositions(raw json.RawMessage) ([][2]int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("decode spans string: %w", err)
		}
		s = unquoted
	}
	var positions [][2]int
	if err := json.Unmarshal([]byte(s), &positions); err != nil {
		return nil, fmt.Errorf("decode spans: %w", err)
	}
	return positions, nil
}
