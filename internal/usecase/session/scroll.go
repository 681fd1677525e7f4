package session

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// DefaultScrollSize is the page size of session scrolls.
const DefaultScrollSize = 100

// ScrollRequest configures an enumeration of the session query.
type ScrollRequest struct {
	Size int
	TTL  string
	// IDsOnly drops document sources from the pages.
	IDsOnly bool
	// Fields limits the returned source fields.
	Fields []string
	// MatchAll enumerates every document instead of the session query.
	MatchAll bool
	// Cursor continues a scroll opened earlier. Only TTL applies then; the
	// page shape was fixed when the cursor was opened.
	Cursor string
}

// Scroll enumerates the session query page by page, handing each page to
// fn. The final empty page is passed too. fn may return scroll.ErrStop.
func (s *Session) Scroll(ctx context.Context, req ScrollRequest, fn func(scroll.Page) error) error {
	ttl := req.TTL
	if ttl == "" {
		ttl = s.scrollTTL
	}
	if req.Cursor != "" {
		if err := scroll.RunFrom(ctx, s.backend, req.Cursor, ttl, fn); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		return nil
	}

	index, err := s.index()
	if err != nil {
		return err
	}
	size := req.Size
	if size <= 0 {
		size = DefaultScrollSize
	}

	extra := map[string]any{"size": size}
	switch {
	case req.IDsOnly:
		extra["_source"] = false
	case len(req.Fields) > 0:
		extra["_source"] = req.Fields
	}

	var body map[string]any
	if req.MatchAll {
		body = extra
	} else {
		body = s.q.Main.ScrollBody(extra)
	}

	if err := scroll.Run(ctx, s.backend, index, body, ttl, fn); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// ScrollDocIDs returns references of up to limit documents matched by the
// session query.
func (s *Session) ScrollDocIDs(ctx context.Context, limit int) ([]domain.DocRef, error) {
	var refs []domain.DocRef
	if limit <= 0 {
		return refs, nil
	}
	err := s.Scroll(ctx, ScrollRequest{IDsOnly: true}, func(p scroll.Page) error {
		for _, h := range p.Hits {
			refs = append(refs, h.Ref())
			if len(refs) == limit {
				return scroll.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// Negatives handling of more-like-this requests.
const (
	NegativesIgnore = "ignore"
	NegativesUnlike = "unlike"
)

// MLT tuning.
const (
	mltSeedLimit     = 500
	mltSize          = 10
	mltMinTermFreq   = 1
	mltMaxQueryTerms = 12
)

// MLTRequest configures a more-like-this search.
type MLTRequest struct {
	Fields    []string
	StopWords []string
	Accepted  []domain.DocRef
	Rejected  []domain.DocRef
	// HandleNegatives is NegativesIgnore (default) or NegativesUnlike.
	HandleNegatives string
}

// MoreLikeThis finds documents similar to the session query hits and the
// accepted documents. Rejected documents are either excluded by id or used
// as negative examples.
func (s *Session) MoreLikeThis(ctx context.Context, req MLTRequest) (*db.SearchResponse, error) {
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("more like this: fields are required: %w", domain.ErrInvalidArgument)
	}
	switch req.HandleNegatives {
	case "", NegativesIgnore, NegativesUnlike:
	default:
		return nil, fmt.Errorf("more like this: negatives %q: %w", req.HandleNegatives, domain.ErrInvalidArgument)
	}

	found, err := s.ScrollDocIDs(ctx, mltSeedLimit)
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	seeds := unionRefs(found, req.Accepted)

	params := query.MoreLikeThisParams{
		Fields:        req.Fields,
		Like:          seeds,
		StopWords:     req.StopWords,
		MinTermFreq:   mltMinTermFreq,
		MaxQueryTerms: mltMaxQueryTerms,
	}
	b := query.NewBool()
	if len(req.Rejected) > 0 {
		if req.HandleNegatives == NegativesUnlike {
			params.Unlike = req.Rejected
		} else {
			ids := make([]string, 0, len(req.Rejected))
			for _, r := range req.Rejected {
				ids = append(ids, r.ID)
			}
			b.MustNot = append(b.MustNot, query.IDs(ids...))
		}
	}
	b.Must = append(b.Must, query.MoreLikeThis(params))

	highlight := make(map[string]any, len(req.Fields))
	for _, f := range req.Fields {
		highlight[f] = map[string]any{}
	}
	body := map[string]any{
		"query": map[string]any{"bool": b},
		"size":  mltSize,
		"highlight": map[string]any{
			"pre_tags":  []string{"<b>"},
			"post_tags": []string{"</b>"},
			"fields":    highlight,
		},
	}
	return s.PerformQuery(ctx, body)
}

// unionRefs concatenates lists keeping the first occurrence of each index and id.
func unionRefs(lists ...[]domain.DocRef) []domain.DocRef {
	seen := make(map[[2]string]struct{})
	out := []domain.DocRef{}
	for _, l := range lists {
		for _, r := range l {
			k := [2]string{r.Index, r.ID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
