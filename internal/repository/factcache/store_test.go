package factcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/domain/facts"
)

func sample() facts.DocMap {
	m := facts.DocMap{}
	m.Add("d1", "text", facts.Span{Fact: "PER", StrVal: "Alice", Start: 0, End: 5})
	m.Add("d2", "title", facts.Span{Fact: "ORG", StrVal: "ACME", Start: 3, End: 7})
	return m
}

func TestStore_RoundTrip(t *testing.T) {
	s, ms := newTestStore(t)
	ctx := context.Background()

	if _, ok := s.Get(ctx, "fp1"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Set(ctx, "fp1", sample())
	if ms.ttls[keyPrefix+"fp1"] != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ms.ttls[keyPrefix+"fp1"], DefaultTTL)
	}

	got, ok := s.Get(ctx, "fp1")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got["d1"]["text"][0].StrVal != "Alice" || got["d2"]["title"][0].End != 7 {
		t.Errorf("unexpected map: %+v", got)
	}
}

func TestStore_EmptyMapRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "empty", facts.DocMap{})
	got, ok := s.Get(ctx, "empty")
	if !ok {
		t.Fatal("expected hit for cached empty map")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %#v", got)
	}
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	s, ms := newTestStore(t)
	ms.data[keyPrefix+"bad"] = []byte("not zstd")

	if _, ok := s.Get(context.Background(), "bad"); ok {
		t.Error("corrupt entry must be a miss")
	}
}

func TestStore_BackendErrorsDegrade(t *testing.T) {
	ms := newMockKVStore()
	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("connection refused") }
	ms.setFn = func(context.Context, string, []byte, time.Duration) error { return errors.New("connection refused") }
	s := New(ms, time.Minute, nil, zap.NewNop())

	s.Set(context.Background(), "fp", sample())
	if _, ok := s.Get(context.Background(), "fp"); ok {
		t.Error("backend failure must be a miss")
	}
}

func TestStore_Metrics(t *testing.T) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_fact_cache_total"}, []string{"tier", "result"})
	s := New(newMockKVStore(), time.Minute, total, zap.NewNop())
	ctx := context.Background()

	s.Get(ctx, "fp")
	s.Set(ctx, "fp", sample())
	s.Get(ctx, "fp")

	if v := testutil.ToFloat64(total.WithLabelValues("remote", "miss")); v != 1 {
		t.Errorf("miss = %v, want 1", v)
	}
	if v := testutil.ToFloat64(total.WithLabelValues("remote", "hit")); v != 1 {
		t.Errorf("hit = %v, want 1", v)
	}
}
