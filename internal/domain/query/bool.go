package query

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// BoolQuery is a must/should/must_not boolean query. Buckets always render as
// JSON arrays, never null.
type BoolQuery struct {
	Must    []Clause
	Should  []Clause
	MustNot []Clause
}

// NewBool creates a bool query with empty buckets.
func NewBool() BoolQuery {
	return BoolQuery{Must: []Clause{}, Should: []Clause{}, MustNot: []Clause{}}
}

// IsEmpty reports whether all three buckets are empty.
func (b BoolQuery) IsEmpty() bool {
	return len(b.Must) == 0 && len(b.Should) == 0 && len(b.MustNot) == 0
}

// Clone returns a copy whose buckets do not share backing arrays with b.
func (b BoolQuery) Clone() BoolQuery {
	return BoolQuery{
		Must:    cloneClauses(b.Must),
		Should:  cloneClauses(b.Should),
		MustNot: cloneClauses(b.MustNot),
	}
}

type boolJSON struct {
	Must    []Clause `json:"must"`
	Should  []Clause `json:"should"`
	MustNot []Clause `json:"must_not"`
	Filter  []Clause `json:"filter,omitempty"`
}

// MarshalJSON renders the three buckets.
func (b BoolQuery) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(boolJSON{
		Must:    cloneClauses(b.Must),
		Should:  cloneClauses(b.Should),
		MustNot: cloneClauses(b.MustNot),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bool query: %w", err)
	}
	return data, nil
}

// UnmarshalJSON reads the three buckets; missing buckets become empty. Any
// other bool key fails with domain.ErrIncompatibleQuery.
func (b *BoolQuery) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("decode bool query: %w: %w", domain.ErrIncompatibleQuery, err)
	}
	for k := range keys {
		switch k {
		case "must", "should", "must_not":
		default:
			return fmt.Errorf("unsupported bool key %q: %w", k, domain.ErrIncompatibleQuery)
		}
	}
	var raw boolJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode bool query: %w: %w", domain.ErrIncompatibleQuery, err)
	}
	*b = BoolQuery{
		Must:    cloneClauses(raw.Must),
		Should:  cloneClauses(raw.Should),
		MustNot: cloneClauses(raw.MustNot),
	}
	return nil
}

// cloneClauses copies s into a fresh non-nil slice.
func cloneClauses(s []Clause) []Clause {
	out := make([]Clause, len(s))
	copy(out, s)
	return out
}
