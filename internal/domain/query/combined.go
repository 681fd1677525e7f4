package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// Main is the document-level part of a combined query: the bool query plus
// top-level search body parameters (size, from, sort, highlight, _source...).
type Main struct {
	Bool   BoolQuery
	params map[string]json.RawMessage
}

// NewMain creates a main query with empty buckets and no parameters.
func NewMain() Main {
	return Main{Bool: NewBool()}
}

// SetParam sets a top-level body parameter. The query itself cannot be replaced this way.
func (m *Main) SetParam(key string, value any) error {
	if key == "query" || key == "" {
		return fmt.Errorf("parameter %q is reserved: %w", key, domain.ErrInvalidArgument)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode parameter %q: %w", key, err)
	}
	if m.params == nil {
		m.params = make(map[string]json.RawMessage)
	}
	m.params[key] = data
	return nil
}

// Param returns a previously set body parameter.
func (m Main) Param(key string) (json.RawMessage, bool) {
	v, ok := m.params[key]
	return v, ok
}

// Body assembles the search request body. Keys in extra override stored parameters.
func (m Main) Body(extra map[string]any) map[string]any {
	body := make(map[string]any, len(m.params)+len(extra)+1)
	for k, v := range m.params {
		body[k] = v
	}
	body["query"] = map[string]any{"bool": m.Bool}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// ScrollBody is Body without the paging offset, which scroll contexts reject.
func (m Main) ScrollBody(extra map[string]any) map[string]any {
	body := m.Body(extra)
	delete(body, "from")
	return body
}

// Clone returns a deep copy of m.
func (m Main) Clone() Main {
	return Main{Bool: m.Bool.Clone(), params: maps.Clone(m.params)}
}

// MarshalJSON renders {"query":{"bool":...}, ...params}.
func (m Main) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(m.Body(nil))
	if err != nil {
		return nil, fmt.Errorf("marshal main query: %w", err)
	}
	return data, nil
}

// UnmarshalJSON requires the query.bool shape.
func (m *Main) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("main is not an object: %w", domain.ErrIncompatibleQuery)
	}
	b, err := decodeQueryBool(raw["query"], false)
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}
	delete(raw, "query")
	*m = Main{Bool: b}
	if len(raw) > 0 {
		m.params = raw
	}
	return nil
}

// SubQuery is one fact query against the nested fact container.
type SubQuery struct {
	Bool   BoolQuery
	Filter []Clause
}

// Clone returns a copy of q sharing no slices with it.
func (q SubQuery) Clone() SubQuery {
	return SubQuery{Bool: q.Bool.Clone(), Filter: slices.Clone(q.Filter)}
}

func cloneSubs(subs []SubQuery) []SubQuery {
	if subs == nil {
		return nil
	}
	out := make([]SubQuery, len(subs))
	for i, sq := range subs {
		out[i] = sq.Clone()
	}
	return out
}

// Restricted returns a copy of q limited to the given document identifiers.
// The identifier list is sorted in the copy so equal sets fingerprint equally.
func (q SubQuery) Restricted(docIDs []string) SubQuery {
	ids := slices.Clone(docIDs)
	slices.Sort(ids)
	filter := make([]Clause, 0, len(q.Filter)+1)
	filter = append(filter, q.Filter...)
	filter = append(filter, IDs(ids...))
	return SubQuery{Bool: q.Bool.Clone(), Filter: filter}
}

// Body renders the search body of the sub-query.
func (q SubQuery) Body(extra map[string]any) map[string]any {
	body := make(map[string]any, len(extra)+1)
	body["query"] = map[string]any{"bool": boolJSON{
		Must:    cloneClauses(q.Bool.Must),
		Should:  cloneClauses(q.Bool.Should),
		MustNot: cloneClauses(q.Bool.MustNot),
		Filter:  q.Filter,
	}}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// MarshalJSON renders {"query":{"bool":...}}.
func (q SubQuery) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(q.Body(nil))
	if err != nil {
		return nil, fmt.Errorf("marshal fact sub-query: %w", err)
	}
	return data, nil
}

// UnmarshalJSON requires the query.bool shape.
func (q *SubQuery) UnmarshalJSON(data []byte) error {
	var raw struct {
		Query json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fact sub-query is not an object: %w", domain.ErrIncompatibleQuery)
	}
	b, err := decodeQueryBool(raw.Query, true)
	if err != nil {
		return fmt.Errorf("fact sub-query: %w", err)
	}
	var filter struct {
		Bool struct {
			Filter []Clause `json:"filter"`
		} `json:"bool"`
	}
	if err := json.Unmarshal(raw.Query, &filter); err != nil {
		return fmt.Errorf("fact sub-query filter: %w: %w", domain.ErrIncompatibleQuery, err)
	}
	*q = SubQuery{Bool: b, Filter: filter.Bool.Filter}
	return nil
}

// FactSpec holds the fact sub-queries. Totals are derived from the lists.
type FactSpec struct {
	Include []SubQuery
	Exclude []SubQuery
}

// TotalInclude returns the number of include sub-queries.
func (f FactSpec) TotalInclude() int { return len(f.Include) }

// TotalExclude returns the number of exclude sub-queries.
func (f FactSpec) TotalExclude() int { return len(f.Exclude) }

// IsEmpty reports whether both totals are zero.
func (f FactSpec) IsEmpty() bool {
	return f.TotalInclude() == 0 && f.TotalExclude() == 0
}

type factSpecJSON struct {
	Include      []SubQuery `json:"include"`
	Exclude      []SubQuery `json:"exclude"`
	TotalInclude int        `json:"total_include"`
	TotalExclude int        `json:"total_exclude"`
}

// MarshalJSON renders the lists with their totals.
func (f FactSpec) MarshalJSON() ([]byte, error) {
	out := factSpecJSON{
		Include:      slices.Clone(f.Include),
		Exclude:      slices.Clone(f.Exclude),
		TotalInclude: f.TotalInclude(),
		TotalExclude: f.TotalExclude(),
	}
	if out.Include == nil {
		out.Include = []SubQuery{}
	}
	if out.Exclude == nil {
		out.Exclude = []SubQuery{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal fact spec: %w", err)
	}
	return data, nil
}

// UnmarshalJSON rejects totals that disagree with the list lengths.
func (f *FactSpec) UnmarshalJSON(data []byte) error {
	var raw factSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode fact spec: %w", wrapIncompatible(err))
	}
	if raw.TotalInclude != len(raw.Include) || raw.TotalExclude != len(raw.Exclude) {
		return fmt.Errorf("fact totals %d/%d do not match lists %d/%d: %w",
			raw.TotalInclude, raw.TotalExclude, len(raw.Include), len(raw.Exclude),
			domain.ErrIncompatibleQuery)
	}
	*f = FactSpec{Include: raw.Include, Exclude: raw.Exclude}
	return nil
}

// Combined is the unified query state of one operation.
type Combined struct {
	Main  Main     `json:"main"`
	Facts FactSpec `json:"facts"`
}

// New creates an empty combined query.
func New() Combined {
	return Combined{Main: NewMain()}
}

// Parse decodes and validates a combined query. Every shape error matches
// domain.ErrIncompatibleQuery.
func Parse(data []byte) (Combined, error) {
	var raw struct {
		Main  json.RawMessage `json:"main"`
		Facts json.RawMessage `json:"facts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Combined{}, fmt.Errorf("combined query is not an object: %w", domain.ErrIncompatibleQuery)
	}
	if len(raw.Main) == 0 {
		return Combined{}, fmt.Errorf("combined query has no main part: %w", domain.ErrIncompatibleQuery)
	}
	q := New()
	if err := json.Unmarshal(raw.Main, &q.Main); err != nil {
		return Combined{}, wrapIncompatible(err)
	}
	if len(raw.Facts) > 0 && string(raw.Facts) != "null" {
		if err := json.Unmarshal(raw.Facts, &q.Facts); err != nil {
			return Combined{}, wrapIncompatible(err)
		}
	}
	return q, nil
}

// UnmarshalJSON decodes through Parse.
func (c *Combined) UnmarshalJSON(data []byte) error {
	q, err := Parse(data)
	if err != nil {
		return err
	}
	*c = q
	return nil
}

// IsEmpty reports whether the main buckets and both fact totals are empty.
func (c Combined) IsEmpty() bool {
	return c.Main.Bool.IsEmpty() && c.Facts.IsEmpty()
}

// Clone returns a deep copy of c.
func (c Combined) Clone() Combined {
	return Combined{
		Main: c.Main.Clone(),
		Facts: FactSpec{
			Include: cloneSubs(c.Facts.Include),
			Exclude: cloneSubs(c.Facts.Exclude),
		},
	}
}

// MergeWith conjoins other's main buckets into c. Must and must_not are
// appended as-is. A should bucket with several clauses becomes one Or clause
// in must; a single should clause is appended to must unwrapped.
func (c *Combined) MergeWith(other Combined) {
	in := other.Main.Bool
	c.Main.Bool.Must = append(c.Main.Bool.Must, in.Must...)
	switch {
	case len(in.Should) > 1:
		c.Main.Bool.Must = append(c.Main.Bool.Must, Or(in.Should...))
	case len(in.Should) == 1:
		c.Main.Bool.Must = append(c.Main.Bool.Must, in.Should[0])
	}
	c.Main.Bool.MustNot = append(c.Main.Bool.MustNot, in.MustNot...)
}

// decodeQueryBool reads query.bool. allowFilter lets fact sub-queries keep
// a filter bucket, which the caller decodes separately.
func decodeQueryBool(data json.RawMessage, allowFilter bool) (BoolQuery, error) {
	if len(data) == 0 {
		return BoolQuery{}, fmt.Errorf("missing query: %w", domain.ErrIncompatibleQuery)
	}
	var q map[string]json.RawMessage
	if err := json.Unmarshal(data, &q); err != nil {
		return BoolQuery{}, fmt.Errorf("query is not an object: %w", domain.ErrIncompatibleQuery)
	}
	rawBool, ok := q["bool"]
	if !ok || string(rawBool) == "null" {
		return BoolQuery{}, fmt.Errorf("query has no bool: %w", domain.ErrIncompatibleQuery)
	}
	if allowFilter {
		var buckets map[string]json.RawMessage
		if err := json.Unmarshal(rawBool, &buckets); err != nil {
			return BoolQuery{}, fmt.Errorf("bool is not an object: %w", domain.ErrIncompatibleQuery)
		}
		if _, ok := buckets["filter"]; ok {
			delete(buckets, "filter")
			stripped, err := json.Marshal(buckets)
			if err != nil {
				return BoolQuery{}, fmt.Errorf("re-encode bool: %w", err)
			}
			rawBool = stripped
		}
	}
	var b BoolQuery
	if err := json.Unmarshal(rawBool, &b); err != nil {
		return BoolQuery{}, wrapIncompatible(err)
	}
	return b, nil
}

func wrapIncompatible(err error) error {
	if errors.Is(err, domain.ErrIncompatibleQuery) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrIncompatibleQuery, err)
}
