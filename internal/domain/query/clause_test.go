package query

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/factdex/internal/domain"
)

func TestClauseJSON(t *testing.T) {
	tests := []struct {
		name   string
		clause Clause
		want   string
	}{
		{"match_all", MatchAll(), `{"match_all":{}}`},
		{"term", Term("texta_facts.fact", "LOC"), `{"term":{"texta_facts.fact":"LOC"}}`},
		{"terms", Terms("id", 1, 2), `{"terms":{"id":[1,2]}}`},
		{"empty ids", IDs(), `{"ids":{"values":[]}}`},
		{"exists", Exists("texta_facts.num_val"), `{"exists":{"field":"texta_facts.num_val"}}`},
		{"range", Range("date", RangeBounds{GTE: "2020-01-01", Format: "yyyy-MM-dd"}),
			`{"range":{"date":{"format":"yyyy-MM-dd","gte":"2020-01-01"}}}`},
		{"nested", Nested("texta_facts", MatchAll(), true),
			`{"nested":{"inner_hits":{},"path":"texta_facts","query":{"match_all":{}}}}`},
		{"bool", Bool(BoolQuery{Must: []Clause{MatchAll()}}),
			`{"bool":{"must":[{"match_all":{}}],"should":[],"must_not":[]}}`},
		{"phrase", MatchPhrase("text", "tere tulemast", 2),
			`{"match_phrase":{"text":{"query":"tere tulemast","slop":2}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clause.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMoreLikeThis(t *testing.T) {
	c := MoreLikeThis(MoreLikeThisParams{
		Fields:        []string{"text"},
		Like:          []domain.DocRef{{Index: "news", ID: "1"}},
		Unlike:        []domain.DocRef{{Index: "news", ID: "2"}},
		MinTermFreq:   1,
		MaxQueryTerms: 12,
	})
	want := `{"more_like_this":{"fields":["text"],"like":[{"_index":"news","_id":"1"}],` +
		`"max_query_terms":12,"min_term_freq":1,"unlike":[{"_index":"news","_id":"2"}]}}`
	if c.String() != want {
		t.Errorf("got %s\nwant %s", c, want)
	}
}

func TestRaw(t *testing.T) {
	c, err := Raw([]byte(`{ "wildcard" : { "name": "ka*" } }`))
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if c.Kind() != Kind("wildcard") {
		t.Errorf("kind = %s", c.Kind())
	}
	if c.String() != `{"wildcard":{"name":"ka*"}}` {
		t.Errorf("payload not compacted: %s", c)
	}

	for _, bad := range []string{`"x"`, `{}`, `{"a":1,"b":2}`, `null`} {
		if _, err := Raw([]byte(bad)); !errors.Is(err, domain.ErrIncompatibleQuery) {
			t.Errorf("Raw(%s): expected ErrIncompatibleQuery, got %v", bad, err)
		}
	}
}

func TestZeroClauseMarshal(t *testing.T) {
	var c Clause
	if !c.IsZero() {
		t.Fatal("expected zero clause")
	}
	if _, err := c.MarshalJSON(); err == nil {
		t.Fatal("expected error marshalling zero clause")
	}
}
