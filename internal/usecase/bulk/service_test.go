package bulk

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// --- mock ---

type mockBackend struct {
	pages        []int
	fetched      int
	bulkCalls    [][]db.BulkAction
	bulkErr      error
	cleared      []string
	openBody     any
	updateByQ    []string
	updateByQErr error
}

func (m *mockBackend) next() scroll.Page {
	i := m.fetched
	m.fetched++
	n := 0
	if i < len(m.pages) {
		n = m.pages[i]
	}
	hits := make([]domain.Hit, n)
	for j := range hits {
		hits[j] = domain.Hit{Index: "news", ID: strconv.Itoa(i*1000 + j)}
	}
	return scroll.Page{ScrollID: "sid", Hits: hits}
}

func (m *mockBackend) OpenScroll(_ context.Context, _ string, body any, _ string) (scroll.Page, error) {
	m.openBody = body
	return m.next(), nil
}

func (m *mockBackend) ContinueScroll(context.Context, string, string) (scroll.Page, error) {
	return m.next(), nil
}

func (m *mockBackend) ClearScroll(_ context.Context, ids ...string) error {
	m.cleared = append(m.cleared, ids...)
	return nil
}

func (m *mockBackend) Bulk(_ context.Context, actions []db.BulkAction) (*db.BulkResponse, error) {
	m.bulkCalls = append(m.bulkCalls, actions)
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	return &db.BulkResponse{}, nil
}

func (m *mockBackend) UpdateByQuery(_ context.Context, index string, _ any) error {
	m.updateByQ = append(m.updateByQ, index)
	return m.updateByQErr
}

var news = domain.Dataset{Index: "news", Mapping: "article"}

// --- tests ---

func TestDelete_OneBulkCallPerPage(t *testing.T) {
	tests := []struct {
		name      string
		pages     []int
		wantCalls int
		wantDel   int
	}{
		{"two full pages then empty", []int{100, 100, 0}, 3, 200},
		{"empty result", []int{0}, 1, 0},
		{"short last page", []int{100, 37, 0}, 3, 137},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockBackend{pages: tt.pages}
			svc := New(m)

			deleted, err := svc.Delete(context.Background(), news, query.NewMain(), "1m")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.bulkCalls) != tt.wantCalls {
				t.Errorf("bulk calls = %d, want %d", len(m.bulkCalls), tt.wantCalls)
			}
			if deleted != tt.wantDel {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDel)
			}
			if len(m.bulkCalls[len(m.bulkCalls)-1]) != 0 {
				t.Error("final bulk call must carry the empty page")
			}
			if len(m.cleared) != 1 {
				t.Errorf("cursor released %d times, want 1", len(m.cleared))
			}
		})
	}
}

func TestDelete_ActionShape(t *testing.T) {
	m := &mockBackend{pages: []int{2, 0}}
	if _, err := New(m, WithPageSize(2)).Delete(context.Background(), news, query.NewMain(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := m.bulkCalls[0][1]
	if a.Op != db.BulkDelete || a.Index != "news" || a.Type != "article" || a.ID != "1" {
		t.Errorf("unexpected action %+v", a)
	}
	body := m.openBody.(map[string]any)
	if body["size"] != 2 || body["_source"] != false {
		t.Errorf("scroll body = %v, want size 2 without source", body)
	}
}

func TestDelete_ScrollBodyDropsFrom(t *testing.T) {
	main := query.NewMain()
	if err := main.SetParam("from", 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := main.SetParam("sort", []string{"_doc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := &mockBackend{pages: []int{0}}
	if _, err := New(m).Delete(context.Background(), news, main, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := m.openBody.(map[string]any)
	if _, ok := body["from"]; ok {
		t.Errorf("scroll body = %v, must not carry from", body)
	}
	if _, ok := body["sort"]; !ok {
		t.Error("other stored parameters must reach the scroll body")
	}
}

func TestDelete_BulkErrorStopsAndReleases(t *testing.T) {
	m := &mockBackend{pages: []int{100, 100, 0}, bulkErr: errors.New("rejected")}
	_, err := New(m).Delete(context.Background(), news, query.NewMain(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(m.bulkCalls) != 1 || m.fetched != 1 {
		t.Errorf("bulk calls = %d, fetched = %d, want 1/1", len(m.bulkCalls), m.fetched)
	}
	if len(m.cleared) != 1 {
		t.Error("cursor must be released on failure")
	}
}

func TestDelete_CancelledStopsAfterCurrentPage(t *testing.T) {
	m := &mockBackend{pages: []int{100, 100, 0}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := New(m).Delete(ctx, news, query.NewMain(), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(m.bulkCalls) != 1 || deleted != 100 {
		t.Errorf("bulk calls = %d, deleted = %d, want 1/100", len(m.bulkCalls), deleted)
	}
}

func TestDelete_Throttled(t *testing.T) {
	m := &mockBackend{pages: []int{1, 1, 0}}
	deleted, err := New(m, WithMaxPagesPerSecond(1000)).Delete(context.Background(), news, query.NewMain(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 || len(m.bulkCalls) != 3 {
		t.Errorf("deleted = %d, calls = %d", deleted, len(m.bulkCalls))
	}
}

func TestUpdateDocuments(t *testing.T) {
	m := &mockBackend{}
	svc := New(m)
	docs := []map[string]any{{"label": "a"}, {"label": "b"}}

	if err := svc.UpdateDocuments(context.Background(), news, docs, []string{"1", "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.bulkCalls) != 1 || len(m.bulkCalls[0]) != 2 {
		t.Fatalf("bulk calls = %v", m.bulkCalls)
	}
	second := m.bulkCalls[0][1]
	if second.Op != db.BulkUpdate || second.ID != "2" || second.Doc.(map[string]any)["label"] != "b" {
		t.Errorf("unexpected action %+v", second)
	}
	if len(m.updateByQ) != 1 || m.updateByQ[0] != "news" {
		t.Errorf("update by query = %v, want [news]", m.updateByQ)
	}
}

func TestUpdateDocuments_LengthMismatch(t *testing.T) {
	m := &mockBackend{}
	err := New(m).UpdateDocuments(context.Background(), news, []map[string]any{{}}, []string{"1", "2"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if len(m.bulkCalls) != 0 || len(m.updateByQ) != 0 {
		t.Error("nothing must be sent on invalid input")
	}
}

func TestReindex_Error(t *testing.T) {
	m := &mockBackend{updateByQErr: errors.New("conflict")}
	if err := New(m).Reindex(context.Background(), news); err == nil {
		t.Fatal("expected error")
	}
}
