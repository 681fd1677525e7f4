package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// Kind names the clause variant. It is the single top-level key of the clause JSON.
type Kind string

// Clause kinds built by this package.
const (
	KindMatchAll     Kind = "match_all"
	KindTerm         Kind = "term"
	KindTerms        Kind = "terms"
	KindMatch        Kind = "match"
	KindMatchPhrase  Kind = "match_phrase"
	KindExists       Kind = "exists"
	KindIDs          Kind = "ids"
	KindRange        Kind = "range"
	KindNested       Kind = "nested"
	KindBool         Kind = "bool"
	KindMoreLikeThis Kind = "more_like_this"
	KindOr           Kind = "or"
)

// Scalar is a value accepted by term-level clauses.
type Scalar interface {
	~string | ~int | ~int64 | ~float64 | ~bool
}

// Clause is an immutable query fragment embedded in a bool bucket.
// The zero value is invalid; use the constructors.
type Clause struct {
	kind    Kind
	payload json.RawMessage
}

func newClause(kind Kind, body any) Clause {
	return Clause{kind: kind, payload: mustEncode(map[string]any{string(kind): body})}
}

// Kind returns the clause variant.
func (c Clause) Kind() Kind { return c.kind }

// IsZero reports whether the clause was never constructed.
func (c Clause) IsZero() bool { return len(c.payload) == 0 }

// MarshalJSON renders the clause as its backend JSON object.
func (c Clause) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("marshal zero clause: %w", domain.ErrIncompatibleQuery)
	}
	return c.payload, nil
}

// UnmarshalJSON accepts any single-key JSON object as a raw clause.
func (c *Clause) UnmarshalJSON(data []byte) error {
	parsed, err := Raw(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String returns the clause JSON.
func (c Clause) String() string { return string(c.payload) }

// Raw wraps an opaque fragment received from outside. The fragment must be a
// JSON object with exactly one key, which becomes the clause kind.
func Raw(data []byte) (Clause, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Clause{}, fmt.Errorf("clause is not an object: %w", domain.ErrIncompatibleQuery)
	}
	if len(obj) != 1 {
		return Clause{}, fmt.Errorf("clause must have exactly one key, got %d: %w", len(obj), domain.ErrIncompatibleQuery)
	}
	var kind Kind
	for k := range obj {
		kind = Kind(k)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return Clause{}, fmt.Errorf("compact clause: %w", domain.ErrIncompatibleQuery)
	}
	return Clause{kind: kind, payload: buf.Bytes()}, nil
}

// MatchAll matches every document.
func MatchAll() Clause {
	return newClause(KindMatchAll, map[string]any{})
}

// Term matches an exact value.
func Term[V Scalar](field string, value V) Clause {
	return newClause(KindTerm, map[string]any{field: value})
}

// Terms matches any of the given exact values.
func Terms[V Scalar](field string, values ...V) Clause {
	if values == nil {
		values = []V{}
	}
	return newClause(KindTerms, map[string]any{field: values})
}

// Match is a full-text match on one field.
func Match(field, text string) Clause {
	return newClause(KindMatch, map[string]any{field: text})
}

// MatchPhrase is a phrase match with the given slop.
func MatchPhrase(field, text string, slop int) Clause {
	return newClause(KindMatchPhrase, map[string]any{
		field: map[string]any{"query": text, "slop": slop},
	})
}

// Exists matches documents where field has a value.
func Exists(field string) Clause {
	return newClause(KindExists, map[string]any{"field": field})
}

// IDs matches documents by identifier.
func IDs(ids ...string) Clause {
	if ids == nil {
		ids = []string{}
	}
	return newClause(KindIDs, map[string]any{"values": ids})
}

// RangeBounds holds range boundaries. Empty strings are omitted.
type RangeBounds struct {
	GT     string
	GTE    string
	LT     string
	LTE    string
	Format string
}

// Range matches values inside the bounds.
func Range(field string, b RangeBounds) Clause {
	body := map[string]any{}
	for k, v := range map[string]string{"gt": b.GT, "gte": b.GTE, "lt": b.LT, "lte": b.LTE, "format": b.Format} {
		if v != "" {
			body[k] = v
		}
	}
	return newClause(KindRange, map[string]any{field: body})
}

// Nested runs q against nested objects under path. innerHits asks the
// backend to return the matching nested objects with each hit.
func Nested(path string, q Clause, innerHits bool) Clause {
	body := map[string]any{"path": path, "query": q}
	if innerHits {
		body["inner_hits"] = map[string]any{}
	}
	return newClause(KindNested, body)
}

// Bool embeds a bool query as a clause.
func Bool(b BoolQuery) Clause {
	return newClause(KindBool, b)
}

// Or is the disjunction pseudo-clause produced when merging multi-clause should buckets.
func Or(clauses ...Clause) Clause {
	if clauses == nil {
		clauses = []Clause{}
	}
	return newClause(KindOr, clauses)
}

// MoreLikeThisParams configures a similarity clause.
type MoreLikeThisParams struct {
	Fields        []string
	Like          []domain.DocRef
	Unlike        []domain.DocRef
	StopWords     []string
	MinTermFreq   int
	MaxQueryTerms int
}

// MoreLikeThis builds a similarity clause seeded by document references.
func MoreLikeThis(p MoreLikeThisParams) Clause {
	like := p.Like
	if like == nil {
		like = []domain.DocRef{}
	}
	body := map[string]any{
		"fields":          p.Fields,
		"like":            like,
		"min_term_freq":   p.MinTermFreq,
		"max_query_terms": p.MaxQueryTerms,
	}
	if len(p.Unlike) > 0 {
		body["unlike"] = p.Unlike
	}
	if len(p.StopWords) > 0 {
		body["stop_words"] = p.StopWords
	}
	return newClause(KindMoreLikeThis, body)
}

// mustEncode marshals values assembled from scalars, slices and clauses only.
func mustEncode(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("query: encode clause: %v", err))
	}
	return data
}
