// Package transport performs every outbound API call with one credential
// and failure-classification policy, so no call site handles HTTP errors itself.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/pkg/logger"
	"github.com/capitalize-ai/conversational-client/pkg/metrics"
)

const (
	// DefaultTimeout applies when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 8 << 20
	expiredBuffer    = 16
)

// CredentialSource is the persisted bearer token as seen by the transport.
type CredentialSource interface {
	Token() string
	ClearIf(token string) (bool, error)
}

// SessionExpired is emitted once per credential invalidated by a 401.
type SessionExpired struct {
	Method string
	Path   string
	At     time.Time
}

// Config holds transport settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithClientOptions appends options for the underlying hertz client.
func WithClientOptions(opts ...config.ClientOption) Option {
	return func(c *Client) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// Client is the single outbound HTTP client.
type Client struct {
	baseURL    string
	timeout    time.Duration
	http       *client.Client
	clientOpts []config.ClientOption
	cookies    *cookieJar
	creds      CredentialSource
	logger     *logger.Logger
	tracer     trace.Tracer
	expired    chan SessionExpired
}

// New creates a transport client.
func New(cfg Config, creds CredentialSource, log *logger.Logger, opts ...Option) (*Client, error) {
	// Normalize server URL
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if log == nil {
		log = logger.Global()
	}

	c := &Client{
		baseURL: base,
		timeout: timeout,
		cookies: newCookieJar(),
		creds:   creds,
		logger:  log.Named("transport"),
		tracer:  otel.Tracer("github.com/capitalize-ai/conversational-client/internal/transport"),
		expired: make(chan SessionExpired, expiredBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	// The standard dialer handles TLS; netpoll does not on the client side.
	hopts := append([]config.ClientOption{
		client.WithDialTimeout(timeout),
		client.WithMaxIdleConnDuration(60 * time.Second),
		config.ClientOption{F: func(o *config.ClientOptions) { o.MaxResponseBodySize = maxResponseBytes }},
		client.WithDialer(standard.NewDialer()),
	}, c.clientOpts...)

	hc, err := client.NewClient(hopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	c.http = hc

	return c, nil
}

// normalizeBaseURL adds a missing scheme and strips the trailing slash, keeping any path prefix.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	// Add scheme if missing
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("malformed URL %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Expired delivers session-expired signals to the single top-level listener.
func (c *Client) Expired() <-chan SessionExpired {
	return c.expired
}

// Send performs one call. body is JSON-encoded when non-nil; a 2xx body is decoded into out when non-nil.
// Every failure is a *Error.
func (c *Client) Send(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	route := routeLabel(path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
	)
	defer span.End()

	token := c.creds.Token()

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	if err := c.buildRequest(ctx, req, method, path, body, token); err != nil {
		e := NewError(KindOther, 0, "")
		e.Err = err
		return c.fail(span, method, route, start, e)
	}

	// Send request
	if err := c.http.Do(ctx, req, resp); err != nil {
		return c.fail(span, method, route, start, classifyDoError(err))
	}
	c.cookies.store(&resp.Header)

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	data := resp.Body()

	// Check HTTP status code first
	if status < 200 || status > 299 {
		e := classifyStatus(status, data)
		if e.Kind == KindUnauthorized {
			c.expireSession(method, path, token)
		}
		return c.fail(span, method, route, start, e)
	}

	// Parse response
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			e := NewError(KindOther, status, "malformed response from server")
			e.Err = err
			return c.fail(span, method, route, start, e)
		}
	}

	duration := time.Since(start)
	metrics.RecordClientRequest(method, route, "success", duration.Seconds())
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
	return nil
}

func (c *Client) buildRequest(ctx context.Context, req *protocol.Request, method, path string, body any, token string) error {
	req.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.SetOptions(config.WithRequestTimeout(c.timeout))

	req.Header.Set("Accept", "application/json")
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("X-Correlation-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.cookies.apply(req)
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{h: &req.Header})

	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.SetBody(data)
	}
	return nil
}

// expireSession clears the credential this request carried. Only the call that
// actually removes it raises the signal, so concurrent 401s signal once.
func (c *Client) expireSession(method, path, token string) {
	if token == "" {
		return
	}

	cleared, err := c.creds.ClearIf(token)
	if err != nil {
		c.logger.Error("failed to clear credential", zap.Error(err))
	}
	if !cleared {
		return
	}

	metrics.SessionExpiredTotal.Inc()
	c.logger.Warn("session expired", zap.String("method", method), zap.String("path", path))

	select {
	case c.expired <- SessionExpired{Method: method, Path: path, At: time.Now()}:
	default:
		c.logger.Error("session expired signal dropped, listener not draining")
	}
}

func (c *Client) fail(span trace.Span, method, route string, start time.Time, e *Error) error {
	duration := time.Since(start)
	metrics.RecordClientRequest(method, route, string(e.Kind), duration.Seconds())

	span.SetStatus(codes.Error, e.Message)
	if e.Err != nil {
		span.RecordError(e.Err)
	}

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", route),
		zap.String("kind", string(e.Kind)),
		zap.Int("status", e.Status),
		zap.Duration("duration", duration),
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	c.logger.Warn("request failed", fields...)

	return e
}
