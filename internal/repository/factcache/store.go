// Package factcache is the shared remote tier of the fact lookup cache.
// Entries are restricted fact maps keyed by query fingerprint, stored as
// zstd-compressed JSON with a TTL.
package factcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain/facts"
)

const keyPrefix = "factdex:facts:"

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = time.Hour

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// kv is the consumer interface for the remote cache (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store caches restricted fact maps in a key-value store. Failures of the
// underlying store degrade to misses and are only logged.
type Store struct {
	kv         kv
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a remote cache tier.
// cacheTotal is a counter vec with labels "tier" and "result", passed explicitly.
func New(s kv, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Get returns the cached map for a query fingerprint.
func (s *Store) Get(ctx context.Context, fingerprint string) (facts.DocMap, bool) {
	key := keyPrefix + fingerprint
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to get cached facts", zap.String("key", key), zap.Error(err))
		}
		s.inc("miss")
		return nil, false
	}

	m, err := decode(data)
	if err != nil {
		s.logger.Warn("Failed to parse cached facts", zap.String("key", key), zap.Error(err))
		s.inc("miss")
		return nil, false
	}
	s.inc("hit")
	return m, true
}

// Set stores the map under a query fingerprint.
func (s *Store) Set(ctx context.Context, fingerprint string, m facts.DocMap) {
	key := keyPrefix + fingerprint
	data, err := encode(m)
	if err != nil {
		s.logger.Warn("Failed to encode facts for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.kv.SetWithTTL(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("Failed to cache facts", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) inc(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues("remote", result).Inc()
	}
}

func encode(m facts.DocMap) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal facts: %w", err)
	}
	return encoder.EncodeAll(raw, nil), nil
}

func decode(data []byte) (facts.DocMap, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty cache entry")
	}
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress facts: %w", err)
	}
	var m facts.DocMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	if m == nil {
		m = facts.DocMap{}
	}
	return m, nil
}
