package factdex

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew_NoBackend(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no backend provided")
	}
}

func TestNew_BadScheme(t *testing.T) {
	_, err := New(context.Background(), WithBackend("ftp://localhost:9200"))
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithBackend("http://localhost:9200").apply(cfg)
	WithBasicAuth("elastic", "secret").apply(cfg)
	WithTimeout(5 * time.Second).apply(cfg)
	WithCompression().apply(cfg)
	if cfg.backendURL != "http://localhost:9200" {
		t.Errorf("backendURL = %q", cfg.backendURL)
	}
	if cfg.username != "elastic" || cfg.password != "secret" {
		t.Errorf("auth = (%q, %q), want (elastic, secret)", cfg.username, cfg.password)
	}
	if cfg.timeout != 5*time.Second || !cfg.compress {
		t.Errorf("timeout = %v compress = %v", cfg.timeout, cfg.compress)
	}

	WithRemoteCache("localhost:6379", "pass").apply(cfg)
	WithRemoteCacheTTL(time.Minute).apply(cfg)
	WithCacheSize(500).apply(cfg)
	if len(cfg.cacheAddrs) != 1 || cfg.cacheAddrs[0] != "localhost:6379" {
		t.Errorf("cacheAddrs = %v", cfg.cacheAddrs)
	}
	if cfg.cachePassword != "pass" || cfg.cacheTTL != time.Minute || cfg.cacheEntries != 500 {
		t.Errorf("cache = (%q, %v, %d)", cfg.cachePassword, cfg.cacheTTL, cfg.cacheEntries)
	}

	WithScrollTTL("1m").apply(cfg)
	WithDateLayout("02.01.2006").apply(cfg)
	WithBulkPageSize(50).apply(cfg)
	WithBulkThrottle(2.5).apply(cfg)
	if cfg.scrollTTL != "1m" || cfg.dateLayout != "02.01.2006" {
		t.Errorf("scrollTTL = %q dateLayout = %q", cfg.scrollTTL, cfg.dateLayout)
	}
	if cfg.bulkPageSize != 50 || cfg.maxPagesPerSec != 2.5 {
		t.Errorf("bulk = (%d, %v), want (50, 2.5)", cfg.bulkPageSize, cfg.maxPagesPerSec)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NoRemote(t *testing.T) {
	c := &Client{}
	c.Close()
}
