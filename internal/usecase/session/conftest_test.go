package session

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	domfacts "github.com/kailas-cloud/factdex/internal/domain/facts"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

type searchCall struct {
	index string
	body  map[string]any
}

type mockBackend struct {
	searchResp *db.SearchResponse
	searchErr  error
	searches   []searchCall

	// scroll pages, each a list of hit ids in index "news"
	pages      [][]string
	fetched    int
	scrollBody map[string]any
	continued  []string
	cleared    int

	mapping  json.RawMessage
	settings []string
}

// decoded re-encodes body so tests can inspect it as plain JSON values.
func decoded(body any) map[string]any {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

func (m *mockBackend) Search(_ context.Context, index string, body any) (*db.SearchResponse, error) {
	m.searches = append(m.searches, searchCall{index: index, body: decoded(body)})
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.searchResp == nil {
		return &db.SearchResponse{}, nil
	}
	return m.searchResp, nil
}

func (m *mockBackend) MultiSearch(_ context.Context, queries []db.MultiQuery) ([]db.SearchResponse, error) {
	return make([]db.SearchResponse, len(queries)), nil
}

func (m *mockBackend) page() scroll.Page {
	i := m.fetched
	m.fetched++
	var hits []domain.Hit
	if i < len(m.pages) {
		for _, id := range m.pages[i] {
			hits = append(hits, domain.Hit{Index: "news", ID: id})
		}
	}
	return scroll.Page{ScrollID: "sid-" + strconv.Itoa(i), Hits: hits}
}

func (m *mockBackend) OpenScroll(_ context.Context, _ string, body any, _ string) (scroll.Page, error) {
	m.scrollBody = decoded(body)
	return m.page(), nil
}

func (m *mockBackend) ContinueScroll(_ context.Context, id, _ string) (scroll.Page, error) {
	m.continued = append(m.continued, id)
	return m.page(), nil
}

func (m *mockBackend) ClearScroll(context.Context, ...string) error {
	m.cleared++
	return nil
}

func (m *mockBackend) GetMapping(context.Context, string) (json.RawMessage, error) {
	return m.mapping, nil
}

func (m *mockBackend) PutSettings(_ context.Context, index string, body any) error {
	data, _ := json.Marshal(body)
	m.settings = append(m.settings, index+" "+string(data))
	return nil
}

type mockFacts struct {
	gotIDs   []string
	gotQuery query.Combined
}

func (m *mockFacts) FactsMap(_ context.Context, _ []domain.Dataset, q query.Combined, ids []string) (domfacts.Map, error) {
	m.gotIDs = ids
	m.gotQuery = q
	return domfacts.NewMap(), nil
}

func (m *mockFacts) FieldsWithFacts(context.Context, []domain.Dataset) (map[domfacts.FactType][]string, error) {
	return map[domfacts.FactType][]string{domfacts.TypeFact: {"text"}}, nil
}

type mockDeleter struct {
	perDataset map[string]int
	err        error
	ttls       []string
}

func (m *mockDeleter) Delete(_ context.Context, d domain.Dataset, _ query.Main, ttl string) (int, error) {
	m.ttls = append(m.ttls, ttl)
	return m.perDataset[d.Index], m.err
}

var twoDatasets = []domain.Dataset{{Index: "news", Mapping: "article"}, {Index: "blogs"}}

func newTestSession(b *mockBackend, opts ...Option) (*Session, *mockFacts, *mockDeleter) {
	f := &mockFacts{}
	d := &mockDeleter{perDataset: map[string]int{}}
	return New(b, f, d, twoDatasets, opts...), f, d
}
