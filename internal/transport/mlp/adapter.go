// Package mlp runs text annotation tasks on an external task service that
// is started with one request and polled until it settles.
package mlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/metrics"
)

// Task statuses reported by the service.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

const (
	// DefaultType is the task type started when Config.Type is empty.
	DefaultType = "mlp"
	// DefaultPollInterval is the pause before every status poll.
	DefaultPollInterval = 10 * time.Second
	// DefaultMaxFailures is how many consecutive bad polls are tolerated.
	DefaultMaxFailures = 3
)

// TaskError reports a task that ended in FAILURE, either on the service or
// locally after too many failed polls.
type TaskError struct {
	Status string
	Reason string
	// Last is the last status document received, if any.
	Last json.RawMessage
	Err  error
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task %s: %s: %v", strings.ToLower(e.Status), e.Reason, e.Err)
	}
	return fmt.Sprintf("task %s: %s", strings.ToLower(e.Status), e.Reason)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Config holds the task service settings.
type Config struct {
	URL          string
	Type         string
	PollInterval time.Duration
	MaxFailures  int
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Adapter starts and polls tasks of one type.
type Adapter struct {
	startURL    string
	taskType    string
	interval    time.Duration
	maxFailures int
	http        *http.Client
	logger      *zap.Logger
}

// New creates an adapter.
func New(cfg Config) (*Adapter, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, errors.New("task service url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse task service url: %w", err)
	}
	a := &Adapter{
		taskType:    cfg.Type,
		interval:    cfg.PollInterval,
		maxFailures: cfg.MaxFailures,
		http:        cfg.HTTPClient,
		logger:      cfg.Logger,
	}
	if a.taskType == "" {
		a.taskType = DefaultType
	}
	if a.interval <= 0 {
		a.interval = DefaultPollInterval
	}
	if a.maxFailures <= 0 {
		a.maxFailures = DefaultMaxFailures
	}
	if a.http == nil {
		a.http = &http.Client{Timeout: 30 * time.Second}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.startURL = base + "/task/start/" + a.taskType
	return a, nil
}

type startResponse struct {
	URL string `json:"url"`
}

type statusResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// Process starts a task with form and polls it until it leaves PENDING.
// On SUCCESS it returns the task result. A failed task yields a *TaskError;
// cancellation of ctx yields the context error.
func (a *Adapter) Process(ctx context.Context, form url.Values) (json.RawMessage, error) {
	var started startResponse
	if err := a.call(ctx, http.MethodPost, a.startURL, form, &started, nil); err != nil {
		return nil, &TaskError{Status: StatusFailure, Reason: "start task", Err: err}
	}
	if started.URL == "" {
		return nil, &TaskError{Status: StatusFailure, Reason: "start task: no status url"}
	}

	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	failures := 0
	var last json.RawMessage
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("poll task: %w", ctx.Err())
		case <-timer.C:
		}

		var status statusResponse
		var raw json.RawMessage
		if err := a.call(ctx, http.MethodGet, started.URL, nil, &status, &raw); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("poll task: %w", ctx.Err())
			}
			failures++
			metrics.TaskPollFailuresTotal.WithLabelValues(a.taskType).Inc()
			if failures > a.maxFailures {
				a.logger.Error("task failed, service keeps sending bad responses",
					zap.String("url", started.URL), zap.Int("failures", failures), zap.Error(err))
				return nil, &TaskError{Status: StatusFailure, Reason: "too many failed polls", Last: last, Err: err}
			}
			a.logger.Warn("task poll failed, retrying",
				zap.String("url", started.URL), zap.Int("failures", failures), zap.Error(err))
			timer.Reset(a.interval)
			continue
		}
		failures = 0
		last = raw

		switch status.Status {
		case StatusPending:
			timer.Reset(a.interval)
		case StatusSuccess:
			return status.Result, nil
		case StatusFailure:
			a.logger.Error("task failed on the service", zap.String("url", started.URL))
			return nil, &TaskError{Status: StatusFailure, Reason: "service reported failure", Last: raw}
		default:
			return nil, &TaskError{Status: StatusFailure, Reason: fmt.Sprintf("unknown status %q", status.Status), Last: raw}
		}
	}
}

// call sends one request. A non-2xx status or an undecodable body is an error.
func (a *Adapter) call(ctx context.Context, method, target string, form url.Values, out any, raw *json.RawMessage) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", method, target, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw != nil {
		*raw = data
	}
	return nil
}
