package factdex

import (
	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
	"github.com/kailas-cloud/factdex/internal/usecase/compose"
	"github.com/kailas-cloud/factdex/internal/usecase/session"
)

// Dataset is one (index, mapping) pair.
type Dataset = domain.Dataset

// DocRef identifies one document.
type DocRef = domain.DocRef

// Hit is one returned document.
type Hit = domain.Hit

// Page is one scroll page.
type Page = scroll.Page

// CombinedQuery is the main query plus fact sub-queries of a session.
type CombinedQuery = query.Combined

// Query building parameters.
type (
	Params          = compose.Params
	FieldConstraint = compose.FieldConstraint
	FactConstraint  = compose.FactConstraint
)

// Constraint operators and match types.
const (
	Must    = compose.OpMust
	Should  = compose.OpShould
	MustNot = compose.OpMustNot

	MatchWord   = compose.MatchWord
	MatchPhrase = compose.MatchPhrase
)

// Session request types.
type (
	ScrollRequest = session.ScrollRequest
	MLTRequest    = session.MLTRequest
	MappedField   = session.MappedField
)

// Negatives handling of MoreLikeThis.
const (
	NegativesIgnore = session.NegativesIgnore
	NegativesUnlike = session.NegativesUnlike
)

// FactType is a class of fact values.
type FactType = domfacts.FactType

// Fact types.
const (
	FactText   = domfacts.TypeFact
	FactString = domfacts.TypeFactStr
	FactNumber = domfacts.TypeFactNum
)

// Span is one fact occurrence inside a document field.
type Span = domfacts.Span

// FactsMap holds the fact spans of a result page per document and path.
type FactsMap = domfacts.Map

// IndexInfo is one row of the index listing.
type IndexInfo = db.IndexInfo

// SearchResult is one page of matched documents.
type SearchResult struct {
	Total int
	Took  int
	Hits  []Hit
}

// IDs returns the document ids of the result in order.
func (r SearchResult) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}
