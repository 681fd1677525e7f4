package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Backend: BackendConfig{URL: "http://localhost:9200"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingBackendURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.URL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing backend url")
	}
}

func TestValidate_RemoteCacheWithoutAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.RemoteCache.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing remote cache addrs")
	}
	expected := "remote_cache.addrs is required when remote_cache.enabled is true"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ScrollTTL(t *testing.T) {
	for _, ttl := range []string{"3m", "90s", "1h", "500ms"} {
		cfg := validConfig()
		cfg.Scroll.TTL = ttl
		if err := cfg.Validate(); err != nil {
			t.Errorf("ttl %q: unexpected error: %v", ttl, err)
		}
	}
	for _, ttl := range []string{"3", "0m", "3 m", "three minutes"} {
		cfg := validConfig()
		cfg.Scroll.TTL = ttl
		if err := cfg.Validate(); err == nil {
			t.Errorf("ttl %q: expected error", ttl)
		}
	}
}

func TestValidate_NegativeThrottle(t *testing.T) {
	cfg := validConfig()
	cfg.Bulk.MaxPagesPerSec = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative throttle")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Backend.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Backend.TimeoutSec)
	}
	if cfg.Backend.DateFormat != "2006-01-02" {
		t.Errorf("expected DateFormat=2006-01-02, got %q", cfg.Backend.DateFormat)
	}
	if cfg.Cache.MaxEntries != 10000 {
		t.Errorf("expected MaxEntries=10000, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.RemoteCache.TTLSec != 3600 {
		t.Errorf("expected TTLSec=3600, got %d", cfg.RemoteCache.TTLSec)
	}
	if cfg.Scroll.TTL != "3m" {
		t.Errorf("expected scroll TTL=3m, got %q", cfg.Scroll.TTL)
	}
	if cfg.Bulk.PageSize != 100 {
		t.Errorf("expected PageSize=100, got %d", cfg.Bulk.PageSize)
	}
	if cfg.MLP.Type != "mlp" || cfg.MLP.PollIntervalSec != 10 || cfg.MLP.MaxFailures != 3 {
		t.Errorf("unexpected mlp defaults: %+v", cfg.MLP)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 90, ShutdownSec: 5},
		Backend: BackendConfig{TimeoutSec: 5, DateFormat: "02.01.2006"},
		Cache:   CacheConfig{MaxEntries: 500},
		Scroll:  ScrollConfig{TTL: "10m"},
		Bulk:    BulkConfig{PageSize: 1000},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 90 {
		t.Errorf("expected WriteTimeoutSec=90, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Backend.DateFormat != "02.01.2006" {
		t.Errorf("expected DateFormat=02.01.2006, got %q", cfg.Backend.DateFormat)
	}
	if cfg.Cache.MaxEntries != 500 {
		t.Errorf("expected MaxEntries=500, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Scroll.TTL != "10m" {
		t.Errorf("expected scroll TTL=10m, got %q", cfg.Scroll.TTL)
	}
	if cfg.Bulk.PageSize != 1000 {
		t.Errorf("expected PageSize=1000, got %d", cfg.Bulk.PageSize)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FACTDEX_TEST_URL", "http://es:9200")

	got := string(expandEnvVars([]byte("url: ${FACTDEX_TEST_URL}\npass: ${FACTDEX_TEST_UNSET:-secret}\nuser: ${FACTDEX_TEST_UNSET}")))
	want := "url: http://es:9200\npass: secret\nuser: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 9090
backend:
  url: ${FACTDEX_TEST_BACKEND:-http://localhost:9200}
  compress: true
remote_cache:
  enabled: true
  addrs: ["localhost:6379"]
bulk:
  max_pages_per_sec: 2.5
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Backend.URL != "http://localhost:9200" || !cfg.Backend.Compress {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.RemoteCache.Enabled || cfg.RemoteCache.TTLSec != 3600 {
		t.Errorf("unexpected remote cache: %+v", cfg.RemoteCache)
	}
	if cfg.Bulk.MaxPagesPerSec != 2.5 {
		t.Errorf("expected MaxPagesPerSec=2.5, got %g", cfg.Bulk.MaxPagesPerSec)
	}
}
