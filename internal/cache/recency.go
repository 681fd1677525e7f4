// Package cache holds the process-wide recency cache of restricted fact lookups.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/factdex/internal/domain/facts"
)

// MaxLimit is the default entry bound.
const MaxLimit = 10000

// keepPercent is the share of entries surviving an eviction sweep.
const keepPercent = 66

// Recency is a bounded cache with least-recently-used batch eviction.
// Eviction runs only inside Set, once the entry count exceeds the limit, and
// trims to floor(limit*0.66) most recently used entries in one sweep.
// Values are shared with callers and must be treated as read-only.
type Recency struct {
	mu      sync.Mutex
	limit   int
	keep    int
	order   *list.List // front = most recently used
	entries map[string]*list.Element

	entriesGauge prometheus.Gauge
	evictions    prometheus.Counter
}

type entry struct {
	key   string
	value facts.DocMap
}

// Option configures a Recency cache.
type Option func(*Recency)

// WithLimit overrides MaxLimit.
func WithLimit(n int) Option {
	return func(r *Recency) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithMetrics reports the entry count and evicted entries.
func WithMetrics(entries prometheus.Gauge, evictions prometheus.Counter) Option {
	return func(r *Recency) {
		r.entriesGauge = entries
		r.evictions = evictions
	}
}

// NewRecency creates an empty cache.
func NewRecency(opts ...Option) *Recency {
	r := &Recency{
		limit:   MaxLimit,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
	for _, o := range opts {
		o(r)
	}
	r.keep = r.limit * keepPercent / 100
	return r
}

// Hit reports whether key is cached without touching its recency.
func (r *Recency) Hit(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Get returns the value for a key known to be cached (see Hit) and marks it
// most recently used. It panics on a miss.
func (r *Recency) Get(key string) facts.DocMap {
	v, ok := r.Lookup(key)
	if !ok {
		panic(fmt.Sprintf("cache: get of missing key %q", key))
	}
	return v
}

// Lookup returns the cached value and marks key as most recently used.
func (r *Recency) Lookup(key string) (facts.DocMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	r.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Set inserts or overwrites key, marks it most recently used and sweeps
// the cache if it grew past the limit.
func (r *Recency) Set(key string, value facts.DocMap) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[key]; ok {
		el.Value.(*entry).value = value
		r.order.MoveToFront(el)
	} else {
		r.entries[key] = r.order.PushFront(&entry{key: key, value: value})
	}

	if r.order.Len() > r.limit {
		r.sweep()
	}
	r.report()
}

// sweep drops everything behind the keep most recent entries. Caller holds mu.
func (r *Recency) sweep() {
	dropped := 0
	for r.order.Len() > r.keep {
		el := r.order.Back()
		r.order.Remove(el)
		delete(r.entries, el.Value.(*entry).key)
		dropped++
	}
	if r.evictions != nil {
		r.evictions.Add(float64(dropped))
	}
}

// Clear drops all entries.
func (r *Recency) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order.Init()
	r.entries = make(map[string]*list.Element)
	r.report()
}

// Len returns the number of cached entries.
func (r *Recency) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// Keys returns cached keys from most to least recently used.
func (r *Recency) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

func (r *Recency) report() {
	if r.entriesGauge != nil {
		r.entriesGauge.Set(float64(r.order.Len()))
	}
}
