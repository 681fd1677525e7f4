package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = l.Sync()
	}

	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	ctx := ContextWithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")
	if logs.Len() != 1 {
		t.Fatalf("got %d entries, want 1", logs.Len())
	}

	// Missing logger falls back to nop.
	FromContext(context.Background()).Info("dropped")
	if logs.Len() != 1 {
		t.Errorf("nop logger wrote an entry")
	}

	FromContextOr(context.Background(), l).Info("fallback")
	if logs.Len() != 2 {
		t.Errorf("fallback logger not used")
	}
}
