package es

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/factdex/internal/db"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{URL: srv.URL}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func readLines(t *testing.T, r io.Reader) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{URL: "ftp://host"})
	assert.Error(t, err)

	c, err := New(Config{URL: "http://localhost:9200/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9200", c.base.String())
}

func TestSearch_RequestAndResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/news,blogs/_search", r.URL.Path)
		_, err := uuid.Parse(r.Header.Get(OpaqueIDHeader))
		assert.NoError(t, err, "opaque id must be a uuid")
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["size"])

		writeJSON(w, http.StatusOK, `{"took":3,"hits":{"total":{"value":2,"relation":"eq"},"hits":[
			{"_index":"news","_id":"1","_source":{"title":"a"}},
			{"_index":"blogs","_id":"2","_source":{"title":"b"}}]}}`)
	}, func(cfg *Config) {
		cfg.Username = "elastic"
		cfg.Password = "secret"
	})

	resp, err := c.Search(context.Background(), "news,blogs", map[string]any{"size": 5})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Hits.Total.Value)
	require.Len(t, resp.Hits.Hits, 2)
	assert.Equal(t, "blogs", resp.Hits.Hits[1].Index)
	assert.JSONEq(t, `{"title":"a"}`, string(resp.Hits.Hits[0].Source))
}

func TestSearch_LegacyTotal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"hits":{"total":17,"hits":[]}}`)
	})
	resp, err := c.Search(context.Background(), "idx", nil)
	require.NoError(t, err)
	assert.Equal(t, 17, resp.Hits.Total.Value)
}

func TestSearch_IndexNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound,
			`{"error":{"type":"index_not_found_exception","reason":"no such index [x]"},"status":404}`)
	})
	_, err := c.Search(context.Background(), "x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrIndexNotFound)
	assert.ErrorIs(t, err, db.ErrTransport)

	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, http.StatusNotFound, dbErr.Status)
	assert.Equal(t, db.OpSearch, dbErr.Op)
	assert.Contains(t, dbErr.Reason, "no such index")
}

func TestSearch_PlainStringError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"SearchPhaseExecutionException[bad]","status":400}`)
	})
	_, err := c.Search(context.Background(), "idx", nil)
	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "SearchPhaseExecutionException[bad]", dbErr.Reason)
	assert.NotErrorIs(t, err, db.ErrIndexNotFound)
}

func TestSearch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{URL: url})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "idx", nil)
	assert.ErrorIs(t, err, db.ErrTransport)
}

func TestMultiSearch_NDJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_msearch", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		lines := readLines(t, r.Body)
		require.Len(t, lines, 4)
		assert.JSONEq(t, `{"index":"a"}`, lines[0])
		assert.JSONEq(t, `{"size":0}`, lines[1])
		assert.JSONEq(t, `{"index":"b"}`, lines[2])
		writeJSON(w, http.StatusOK, `{"responses":[{"hits":{"total":1,"hits":[]}},{"hits":{"total":2,"hits":[]}}]}`)
	})

	out, err := c.MultiSearch(context.Background(), []db.MultiQuery{
		{Index: "a", Body: map[string]int{"size": 0}},
		{Index: "b", Body: map[string]int{"size": 0}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[1].Hits.Total.Value)
}

func TestMultiSearch_EntryError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"responses":[{"hits":{"total":1,"hits":[]}},{"error":{"type":"x"},"status":400}]}`)
	})
	_, err := c.MultiSearch(context.Background(), []db.MultiQuery{{Index: "a"}, {Index: "b"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrTransport)
	assert.Contains(t, err.Error(), "query 1 (b)")
}

func TestMultiSearch_Empty(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })
	out, err := c.MultiSearch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, calls.Load())
}

func TestBulk_EmptyShortCircuits(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })
	resp, err := c.Bulk(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Zero(t, calls.Load())
}

func TestBulk_EncodesActions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		lines := readLines(t, r.Body)
		require.Len(t, lines, 5)
		assert.JSONEq(t, `{"delete":{"_index":"news","_type":"article","_id":"1"}}`, lines[0])
		assert.JSONEq(t, `{"update":{"_index":"news","_id":"2"}}`, lines[1])
		assert.JSONEq(t, `{"doc":{"title":"new"}}`, lines[2])
		assert.JSONEq(t, `{"index":{"_index":"news","_id":"3"}}`, lines[3])
		assert.JSONEq(t, `{"title":"full"}`, lines[4])
		writeJSON(w, http.StatusOK, `{"took":1,"errors":true,"items":[
			{"delete":{"_index":"news","_id":"1","status":200}},
			{"update":{"_index":"news","_id":"2","status":404,"error":{"type":"document_missing_exception"}}},
			{"index":{"_index":"news","_id":"3","status":201}}]}`)
	})

	resp, err := c.Bulk(context.Background(), []db.BulkAction{
		{Op: db.BulkDelete, Index: "news", Type: "article", ID: "1"},
		{Op: db.BulkUpdate, Index: "news", ID: "2", Doc: map[string]string{"title": "new"}},
		{Op: db.BulkIndex, Index: "news", ID: "3", Doc: map[string]string{"title": "full"}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Errors)
	assert.Equal(t, 1, resp.Failed())
}

func TestBulk_UnknownAction(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	})
	_, err := c.Bulk(context.Background(), []db.BulkAction{{Op: "upsert", Index: "x"}})
	assert.Error(t, err)
}

func TestBulk_GzipCompression(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		lines := readLines(t, zr)
		require.Len(t, lines, 1)
		assert.True(t, strings.HasPrefix(lines[0], `{"delete"`))
		writeJSON(w, http.StatusOK, `{"errors":false,"items":[]}`)
	}, func(cfg *Config) { cfg.Compress = true })

	_, err := c.Bulk(context.Background(), []db.BulkAction{{Op: db.BulkDelete, Index: "a", ID: "1"}})
	require.NoError(t, err)
}

func TestSearch_JSONBodyNotCompressed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Encoding"))
		writeJSON(w, http.StatusOK, `{"hits":{"total":0,"hits":[]}}`)
	}, func(cfg *Config) { cfg.Compress = true })

	_, err := c.Search(context.Background(), "idx", map[string]any{"size": 1})
	require.NoError(t, err)
}

func TestScroll_OpenContinueClear(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/idx/_search":
			assert.Equal(t, "2m", r.URL.Query().Get("scroll"))
			writeJSON(w, http.StatusOK, `{"_scroll_id":"s1","hits":{"total":3,"hits":[{"_index":"idx","_id":"1"}]}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/_search/scroll":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "s1", body["scroll_id"])
			assert.Equal(t, "2m", body["scroll"])
			writeJSON(w, http.StatusOK, `{"_scroll_id":"s2","hits":{"total":3,"hits":[]}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/_search/scroll":
			var body map[string][]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"s2"}, body["scroll_id"])
			writeJSON(w, http.StatusNotFound, `{"succeeded":true,"num_freed":0}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	first, err := c.OpenScroll(ctx, "idx", map[string]any{"size": 1}, "2m")
	require.NoError(t, err)
	assert.Equal(t, "s1", first.ScrollID)
	assert.Equal(t, 3, first.Total)
	assert.Len(t, first.Hits, 1)

	next, err := c.ContinueScroll(ctx, "s1", "2m")
	require.NoError(t, err)
	assert.Equal(t, "s2", next.ScrollID)
	assert.Empty(t, next.Hits)

	require.NoError(t, c.ClearScroll(ctx, "s2"), "expired scroll must not fail")
}

func TestAdmin_Endpoints(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		switch r.URL.Path {
		case "/_cat/indices":
			writeJSON(w, http.StatusOK, `[{"index":"zeta","health":"green"},{"index":"alpha","health":"yellow"}]`)
		case "/news/_mapping":
			writeJSON(w, http.StatusOK, `{"news":{"mappings":{"properties":{}}}}`)
		default:
			writeJSON(w, http.StatusOK, `{"acknowledged":true}`)
		}
	})
	ctx := context.Background()

	indices, err := c.CatIndices(ctx)
	require.NoError(t, err)
	require.Len(t, indices, 2)
	assert.Equal(t, "alpha", indices[0].Index)

	raw, err := c.GetMapping(ctx, "news")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mappings"`)

	require.NoError(t, c.PutMapping(ctx, "news", "article", map[string]any{}))
	require.NoError(t, c.PutMapping(ctx, "logs", "", map[string]any{}))
	require.NoError(t, c.PutSettings(ctx, "news", map[string]any{}))
	require.NoError(t, c.OpenIndex(ctx, "news"))
	require.NoError(t, c.CloseIndex(ctx, "news"))
	require.NoError(t, c.DeleteIndex(ctx, "news"))
	require.NoError(t, c.UpdateByQuery(ctx, "news", map[string]any{}))
	require.NoError(t, c.Ping(ctx))

	assert.Equal(t, []string{
		"GET /_cat/indices?format=json",
		"GET /news/_mapping?",
		"PUT /news/_mapping/article?",
		"PUT /logs/_mapping?",
		"PUT /news/_settings?",
		"POST /news/_open?",
		"POST /news/_close?",
		"DELETE /news?",
		"POST /news/_update_by_query?conflicts=proceed&refresh=true",
		"GET /?",
	}, seen)
}

func TestError_MatchesTransport(t *testing.T) {
	err := error(&db.Error{Op: db.OpBulk, Status: 500, Reason: "boom"})
	assert.True(t, errors.Is(err, db.ErrTransport))
	assert.Equal(t, "_bulk: status 500: boom", err.Error())
}
