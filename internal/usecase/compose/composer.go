// Package compose turns structured search constraints into a combined query.
package compose

import (
	"fmt"

	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
)

// Operator places a constraint in a bool bucket.
type Operator string

// Supported operators.
const (
	OpMust    Operator = "must"
	OpShould  Operator = "should"
	OpMustNot Operator = "must_not"
)

// MatchType selects how field text is matched.
type MatchType string

// Supported match types.
const (
	MatchWord   MatchType = "word"
	MatchPhrase MatchType = "phrase"
)

// FieldConstraint matches text in one document field.
type FieldConstraint struct {
	Field    string
	Text     string
	Match    MatchType
	Slop     int
	Operator Operator
}

// FactConstraint matches a fact annotation. An empty Value matches any value
// of the named fact. Exclude puts the fact sub-query on the exclude side.
type FactConstraint struct {
	Name    string
	Value   string
	Path    string
	Exclude bool
}

// Params are the inputs of a composed query.
type Params struct {
	Constraints []FieldConstraint
	Facts       []FactConstraint
	Size        int
	From        int
}

// Composer builds combined queries from parameters.
type Composer struct{}

// New creates a composer.
func New() *Composer { return &Composer{} }

// Compose builds the combined query for p.
func (c *Composer) Compose(p Params) (query.Combined, error) {
	q := query.New()

	for i, fc := range p.Constraints {
		clause, err := fieldClause(fc)
		if err != nil {
			return query.Combined{}, fmt.Errorf("constraint %d: %w", i, err)
		}
		switch fc.Operator {
		case OpMust, "":
			q.Main.Bool.Must = append(q.Main.Bool.Must, clause)
		case OpShould:
			q.Main.Bool.Should = append(q.Main.Bool.Should, clause)
		case OpMustNot:
			q.Main.Bool.MustNot = append(q.Main.Bool.MustNot, clause)
		default:
			return query.Combined{}, fmt.Errorf("constraint %d: operator %q: %w", i, fc.Operator, domain.ErrInvalidArgument)
		}
	}

	for i, f := range p.Facts {
		if f.Name == "" {
			return query.Combined{}, fmt.Errorf("fact %d: name is required: %w", i, domain.ErrInvalidArgument)
		}
		sub := query.SubQuery{Bool: query.NewBool()}
		sub.Bool.Must = append(sub.Bool.Must, query.Nested(domain.ReservedFactField, factClause(f), true))
		main := query.Nested(domain.ReservedFactField, factClause(f), false)
		if f.Exclude {
			q.Facts.Exclude = append(q.Facts.Exclude, sub)
			q.Main.Bool.MustNot = append(q.Main.Bool.MustNot, main)
			continue
		}
		q.Facts.Include = append(q.Facts.Include, sub)
		q.Main.Bool.Must = append(q.Main.Bool.Must, main)
	}

	if p.Size > 0 {
		if err := q.Main.SetParam("size", p.Size); err != nil {
			return query.Combined{}, err
		}
	}
	if p.From > 0 {
		if err := q.Main.SetParam("from", p.From); err != nil {
			return query.Combined{}, err
		}
	}
	return q, nil
}

func fieldClause(fc FieldConstraint) (query.Clause, error) {
	if fc.Field == "" {
		return query.Clause{}, fmt.Errorf("field is required: %w", domain.ErrInvalidArgument)
	}
	switch fc.Match {
	case MatchWord, "":
		return query.Match(fc.Field, fc.Text), nil
	case MatchPhrase:
		return query.MatchPhrase(fc.Field, fc.Text, fc.Slop), nil
	default:
		return query.Clause{}, fmt.Errorf("match type %q: %w", fc.Match, domain.ErrInvalidArgument)
	}
}

func factClause(f FactConstraint) query.Clause {
	b := query.NewBool()
	b.Must = append(b.Must, query.Term(domain.ReservedFactField+".fact", f.Name))
	if f.Value != "" {
		b.Must = append(b.Must, query.Term(domain.ReservedFactField+".str_val", f.Value))
	}
	if f.Path != "" {
		b.Must = append(b.Must, query.Term(domain.ReservedFactField+".doc_path", f.Path))
	}
	return query.Bool(b)
}
