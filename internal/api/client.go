// Package api is the single choke point for SafeShift backend calls. It
// attaches the session's bearer token, turns non-2xx responses into coded
// errors and ends the session when the server answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/metrics"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 * 1024
	// Version is reported in the User-Agent header.
	Version = "0.4.0"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Client talks to the SafeShift REST API on behalf of one session.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	sess      *session.Manager
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for baseURL bound to sess, and registers the
// client's heartbeat call with the session.
func New(baseURL string, sess *session.Manager, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "session manager required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid API base URL %q", baseURL))
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		sess:      sess,
		logger:    logger.Discard(),
		tracer:    otel.Tracer("safeshift/internal/api"),
		userAgent: fmt.Sprintf("safeshift-cli/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	sess.SetHeartbeat(c.SendHeartbeat)
	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Manager {
	return c.sess
}

// StartHeartbeat (re)starts the session's heartbeat loop.
func (c *Client) StartHeartbeat() session.CancelFunc {
	return c.sess.StartHeartbeat()
}

// Do sends an authorized JSON request. body, when non-nil, is encoded as
// JSON; out, when non-nil, receives the decoded response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	p, rawQuery, _ := strings.Cut(path, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid query string")
	}
	return c.do(ctx, call{method: method, path: p, route: p, query: q, body: body, out: out, auth: true})
}

// call describes one request. route is the low-cardinality label used for
// metrics and span names.
type call struct {
	method string
	path   string
	route  string
	query  url.Values

	body        any
	contentType string
	out         any

	auth bool
	// keepSession suppresses 401 expiry handling (logout, login).
	keepSession bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	var payload io.Reader
	if r, ok := cl.body.(io.Reader); ok {
		payload = r
	} else if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
		}
		payload = bytes.NewReader(raw)
		cl.contentType = "application/json"
	}

	ctx, span := c.tracer.Start(ctx, cl.method+" "+cl.route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := c.baseURL.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	snap := c.sess.Current()
	if cl.auth && snap.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+snap.Token)
	}
	span.SetAttributes(
		attribute.String("http.request.method", cl.method),
		attribute.String("url.path", cl.path),
		attribute.String("safeshift.request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(cl, 0, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.WarnContext(ctx, "request failed",
			"method", cl.method, "route", cl.route, "request_id", requestID, "error", err)
		return dErrors.Wrap(err, dErrors.CodeNetwork, "could not reach the SafeShift server")
	}
	defer resp.Body.Close()
	c.observe(cl, resp.StatusCode, start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		apiErr := decodeError(resp)
		c.logger.DebugContext(ctx, "request rejected",
			"method", cl.method, "route", cl.route, "status", resp.StatusCode, "request_id", requestID)

		if resp.StatusCode == http.StatusUnauthorized && cl.auth && snap.Authenticated() && !cl.keepSession {
			c.sess.Expire(ctx, snap.Generation)
			return dErrors.Wrap(apiErr, dErrors.CodeSessionExpired, "session expired; please log in again").
				WithStatus(resp.StatusCode)
		}
		return apiErr
	}

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil && !errors.Is(err, io.EOF) {
		return dErrors.Wrap(err, dErrors.CodeAPI, "malformed response from server").WithStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) observe(cl call, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveRequest(cl.method, cl.route, status, time.Since(start))
}

// decodeError turns an error response into a coded error. The server
// reports failures as {"detail": "..."}; validation failures may carry a
// list of {"loc", "msg"} objects instead of a string.
func decodeError(resp *http.Response) *dErrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := detailMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return dErrors.New(codeForStatus(resp.StatusCode), msg).WithStatus(resp.StatusCode)
}

func detailMessage(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
				continue
			}
			msgs = append(msgs, it.Msg)
		}
		return strings.Join(msgs, "; ")
	}
	return string(body.Detail)
}

func codeForStatus(status int) dErrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return dErrors.CodeValidation
	case http.StatusUnauthorized:
		return dErrors.CodeUnauthorized
	case http.StatusForbidden:
		return dErrors.CodeForbidden
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusConflict:
		return dErrors.CodeConflict
	default:
		return dErrors.CodeAPI
	}
}
