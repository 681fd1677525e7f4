// Package es implements the search backend over the Elasticsearch-compatible
// JSON/HTTP API.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/metrics"
)

// Compile-time check: Client implements db.Backend.
var _ db.Backend = (*Client)(nil)

// OpaqueIDHeader carries the per-request trace id.
const OpaqueIDHeader = "X-Opaque-Id"

const (
	contentJSON   = "application/json"
	contentNDJSON = "application/x-ndjson"
)

// Config holds connection parameters for the backend.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	// Compress gzips NDJSON request bodies (bulk and multi-search).
	Compress   bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one backend cluster.
type Client struct {
	base     *url.URL
	http     *http.Client
	username string
	password string
	compress bool
	logger   *zap.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", base.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:     base,
		http:     hc,
		username: cfg.Username,
		password: cfg.Password,
		compress: cfg.Compress,
		logger:   logger,
	}, nil
}

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	// tolerate lists statuses treated as success with an empty result.
	tolerate []int
}

// jsonRequest builds a request with a JSON-encoded body.
func jsonRequest(op, method, path string, body any) (request, error) {
	r := request{op: op, method: method, path: path, contentType: contentJSON}
	if body == nil {
		return r, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return r, fmt.Errorf("%s: encode body: %w", op, err)
	}
	r.body = data
	return r, nil
}

// do sends the request and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	err := c.send(ctx, req, out)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.BackendRequestsTotal.WithLabelValues(req.op, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(req.op).Observe(duration.Seconds())
	return err
}

func (c *Client) send(ctx context.Context, req request, out any) error {
	u := *c.base
	u.Path = c.base.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	body, gzipped, err := c.encodeBody(req)
	if err != nil {
		return &db.Error{Op: req.op, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return &db.Error{Op: req.op, Err: err}
	}
	opaqueID := uuid.NewString()
	httpReq.Header.Set(OpaqueIDHeader, opaqueID)
	httpReq.Header.Set("Accept", contentJSON)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if gzipped {
		httpReq.Header.Set("Content-Encoding", "gzip")
	}
	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("op", req.op),
			zap.String("opaque_id", opaqueID),
			zap.Error(err),
		)
		return &db.Error{Op: req.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("Backend request",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.String("opaque_id", opaqueID),
		zap.Int("status", resp.StatusCode),
	)

	for _, s := range req.tolerate {
		if resp.StatusCode == s {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(req.op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &db.Error{Op: req.op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) encodeBody(req request) (io.Reader, bool, error) {
	if req.body == nil {
		return http.NoBody, false, nil
	}
	if !c.compress || req.contentType != contentNDJSON {
		return bytes.NewReader(req.body), false, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(req.body); err != nil {
		return nil, false, fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, fmt.Errorf("gzip body: %w", err)
	}
	return &buf, true, nil
}

// errorBody is the backend error envelope. Older versions send a plain string.
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func parseErrorResponse(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &db.Error{Op: op, Status: resp.StatusCode}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var cause errorCause
		var plain string
		switch {
		case json.Unmarshal(body.Error, &cause) == nil && cause.Type != "":
			e.Reason = cause.Type + ": " + cause.Reason
			if cause.Type == "index_not_found_exception" {
				e.Err = db.ErrIndexNotFound
			}
		case json.Unmarshal(body.Error, &plain) == nil:
			e.Reason = plain
		}
	}
	if e.Reason == "" {
		e.Reason = strings.TrimSpace(string(raw))
	}
	if e.Err == nil && resp.StatusCode == http.StatusNotFound && strings.Contains(e.Reason, "index_not_found") {
		e.Err = db.ErrIndexNotFound
	}
	return e
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, request{op: db.OpPing, method: http.MethodGet, path: "/"}, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// indexPath joins an index list and an endpoint into a request path.
func indexPath(index, endpoint string) string {
	p := "/" + index
	if endpoint != "" {
		p += "/" + endpoint
	}
	return p
}
