package domain

import (
	"encoding/json"
	"fmt"
)

// Hit is one document returned by the backend.
type Hit struct {
	Index     string               `json:"_index"`
	Type      string               `json:"_type,omitempty"`
	ID        string               `json:"_id"`
	Score     *float64             `json:"_score,omitempty"`
	Source    json.RawMessage      `json:"_source,omitempty"`
	Highlight map[string][]string  `json:"highlight,omitempty"`
	InnerHits map[string]InnerHits `json:"inner_hits,omitempty"`
}

// Ref returns the document reference of the hit.
func (h Hit) Ref() DocRef {
	return DocRef{Index: h.Index, Type: h.Type, ID: h.ID}
}

// InnerHits is the per-path inner hit block of a nested query.
type InnerHits struct {
	Hits HitList `json:"hits"`
}

// HitList is the hits envelope of a search response.
type HitList struct {
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score,omitempty"`
	Hits     []Hit    `json:"hits"`
}

// Total is the hit count. Older backends report a bare number, newer ones
// an object with value and relation.
type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// UnmarshalJSON accepts both total encodings.
func (t *Total) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Total{Value: n, Relation: "eq"}
		return nil
	}
	type plain Total
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode hits total: %w", err)
	}
	*t = Total(p)
	return nil
}
