package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

const maxResponseBytes = 1 << 20

type Config struct {
	L          *logger.Logger
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps the homestay REST API. It injects the bearer token of the
// session passed to each call and clears that session on a 401.
type Client struct {
	l    *logger.Logger
	base *url.URL
	http *http.Client
}

func New(conf Config) (*Client, error) {
	base, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", conf.BaseURL)
	}

	httpClient := conf.HTTPClient
	if httpClient == nil {
		//nolint:exhaustruct
		httpClient = &http.Client{Timeout: conf.Timeout}
	}

	return &Client{
		l:    conf.L,
		base: base,
		http: httpClient,
	}, nil
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	// guest calls never carry an Authorization header
	guest bool
}

func (c *Client) do(ctx context.Context, sess *session.Session, cl call, out any) error {
	u := c.base.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader

	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", cl.method, cl.path, err)
		}

		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", cl.method, cl.path, err)
	}

	req.Header.Set("Accept", "application/json")

	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req.Header.Set("X-Request-ID", requestID)

	if key, ok := booking.IdempotencyKeyFromContext(ctx); ok {
		req.Header.Set("Idempotency-Key", key)
	}

	if token := sess.Token(); token != "" && !cl.guest {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", cl.method, cl.path, err)
	}

	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}

	c.l.LogDebugf(
		"type: upstream, method: %s, path: %s, status: %d, requestID: %s, traceID: %s, latency: %s",
		cl.method, cl.path, resp.StatusCode, requestID, traceID, time.Since(start),
	)

	var env envelope

	// a body that is not an object (e.g. a bare list) leaves env empty
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest || (env.Success != nil && !*env.Success) {
		apiErr := &Error{
			Method:     cl.method,
			Path:       cl.path,
			StatusCode: resp.StatusCode,
			Message:    firstNonEmpty(env.Message, env.Error),
		}

		if resp.StatusCode == http.StatusUnauthorized && sess != nil {
			c.l.LogWarnf("Backend rejected credentials on %s %s, clearing session", cl.method, cl.path)
			sess.Clear()
		}

		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	payload := raw
	if len(env.Data) > 0 && string(env.Data) != "null" {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", cl.method, cl.path, err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
