package factdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the status label.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeCanceled = "canceled"
	outcomeError    = "error"
)

// noDocs marks operations that do not return documents.
const noDocs = -1

// outcome classifies err. Rejected calls failed on their input and never
// reached the backend in a usable form.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	case errors.Is(err, ErrIncompatibleQuery),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNoDatasets),
		errors.Is(err, ErrSchema):
		return outcomeRejected
	default:
		return outcomeError
	}
}

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	documents  *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factdex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by name and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factdex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 10, 30, 120},
		}, []string{"operation"}),
		documents: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factdex",
			Subsystem: "sdk",
			Name:      "operation_documents",
			Help:      "Documents matched, returned or deleted by successful SDK operations.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.documents); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so two
// clients may share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("factdex: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("factdex: register metric: %w", err)
	}
	return nil
}

// observer records SDK operations. A nil observer records nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one operation. docs is the number of documents the
// operation matched or touched, or noDocs.
func (o *observer) observe(op string, start time.Time, docs int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if err == nil && docs >= 0 {
			o.metrics.documents.WithLabelValues(op).Observe(float64(docs))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := []any{"op", op, "status", status, "duration", dur}
	if err == nil && docs >= 0 {
		attrs = append(attrs, "docs", docs)
	}
	switch status {
	case outcomeOK:
		o.logger.Debug("operation completed", attrs...)
	case outcomeCanceled, outcomeRejected:
		o.logger.Info("operation not completed", append(attrs, "error", err)...)
	default:
		o.logger.Warn("operation failed", append(attrs, "error", err)...)
	}
}
