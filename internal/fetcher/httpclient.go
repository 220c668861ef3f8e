package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"resty.dev/v3"

	"finrouter/internal/metrics"
	"finrouter/internal/ratelimit"
)

const (
	// Default retry configuration
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second

	defaultMaxConns = 8
)

// TransportConfig configures the HTTP transport of one provider
type TransportConfig struct {
	Provider         string
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	MaxConns         int
	Headers          map[string]string
}

// Request describes one GET against a provider
type Request struct {
	Path    string
	Query   map[string]string
	Headers map[string]string
}

// Transport is the shared HTTP client of one provider.
// It owns a connection pool for the process lifetime, retries transient
// failures with capped exponential backoff and passes every attempt through
// the provider's rate gate.
type Transport struct {
	provider string
	client   *resty.Client
	pool     *http.Transport
	inflight atomic.Int64
}

// NewTransport creates the transport for cfg.Provider gated by gate.
// A nil gate uses the process-wide limiter.
func NewTransport(cfg TransportConfig, gate *ratelimit.Limiter) *Transport {
	if gate == nil {
		gate = ratelimit.Shared()
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	} else if cfg.RetryCount == 0 {
		cfg.RetryCount = defaultRetryCount
	}
	if cfg.RetryWaitTime <= 0 {
		cfg.RetryWaitTime = defaultRetryWaitTime
	}
	if cfg.RetryMaxWaitTime <= 0 {
		cfg.RetryMaxWaitTime = defaultRetryMaxWaitTime
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}

	pool := http.DefaultTransport.(*http.Transport).Clone()
	pool.MaxIdleConns = cfg.MaxConns
	pool.MaxIdleConnsPerHost = cfg.MaxConns
	pool.MaxConnsPerHost = cfg.MaxConns

	t := &Transport{provider: cfg.Provider, pool: pool}

	hc := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &gatedRoundTripper{
			provider: cfg.Provider,
			gate:     gate,
			base:     pool,
			inflight: &t.inflight,
		},
	}

	t.client = resty.NewWithClient(hc).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeaders(cfg.Headers).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(t.retryHook)

	return t
}

// Provider returns the provider this transport belongs to
func (t *Transport) Provider() string { return t.provider }

// InFlight returns the number of requests currently holding a pooled connection
func (t *Transport) InFlight() int64 { return t.inflight.Load() }

// Close releases idle pooled connections
func (t *Transport) Close() {
	t.pool.CloseIdleConnections()
}

// Get performs req and JSON-decodes a successful response into result.
// Errors are FetchErrors attributed to the transport's provider.
func (t *Transport) Get(ctx context.Context, req Request, result any) error {
	r := t.client.R().
		SetContext(ctx).
		SetQueryParams(req.Query).
		SetHeaders(req.Headers)
	if result != nil {
		r.SetResult(result)
	}

	resp, err := r.Get(req.Path)
	if err != nil {
		return t.classify(ctx, err)
	}

	if !resp.IsSuccess() {
		return ClassifyHTTPError(resp.StatusCode()).WithProvider(t.provider)
	}

	return nil
}

func (t *Transport) classify(ctx context.Context, err error) *FetchError {
	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(err).WithProvider(t.provider)
	case errors.Is(err, context.Canceled):
		return NewCanceledError(err).WithProvider(t.provider)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewTimeoutError(err).WithProvider(t.provider)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		fe := NewDataShapeError("response body is not valid JSON for the expected shape")
		fe.Cause = err
		return fe.WithProvider(t.provider)
	default:
		return NewNetworkError(err).WithProvider(t.provider)
	}
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		// The caller gave up; retrying cannot succeed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}

	switch code := r.StatusCode(); {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	default:
		// Don't retry on client errors (4xx except 408/429)
		return false
	}
}

// retryHook logs retry attempts for observability
func (t *Transport) retryHook(r *resty.Response, err error) {
	metrics.UpstreamRetries.WithLabelValues(t.provider).Inc()

	if r == nil || r.Request == nil {
		slog.Debug("retrying request", "provider", t.provider, "error", err)
		return
	}

	if err != nil {
		slog.Debug("retrying request due to error",
			"provider", t.provider,
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"provider", t.provider,
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// gatedRoundTripper waits on the provider's rate gate before every attempt
// and tracks how many attempts hold a pooled connection.
type gatedRoundTripper struct {
	provider string
	gate     *ratelimit.Limiter
	base     http.RoundTripper
	inflight *atomic.Int64
}

func (g *gatedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := g.gate.Wait(req.Context(), g.provider); err != nil {
		return nil, err
	}

	g.acquire()
	resp, err := g.base.RoundTrip(req)
	if err != nil {
		g.release()
		metrics.ObserveUpstream(g.provider, 0)
		return nil, err
	}

	metrics.ObserveUpstream(g.provider, resp.StatusCode)
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: sync.OnceFunc(g.release)}
	return resp, nil
}

func (g *gatedRoundTripper) acquire() {
	g.inflight.Add(1)
	metrics.UpstreamInFlight.WithLabelValues(g.provider).Inc()
}

func (g *gatedRoundTripper) release() {
	g.inflight.Add(-1)
	metrics.UpstreamInFlight.WithLabelValues(g.provider).Dec()
}

// releasingBody hands the connection slot back when the body is closed
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
