// Package fetch retrieves catalog and detail documents from the remote
// source politely: a shared rate limiter spaces requests, a circuit breaker
// stops hammering a failing host, and bodies are capped before parsing.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
)

// Fetcher retrieves and parses one document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*html.Node, error)
}

// RawFetcher retrieves the undecoded body of one document.
type RawFetcher interface {
	FetchRaw(ctx context.Context, url string) ([]byte, error)
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps the body read per document.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithRequestDelay spaces requests by d across every caller of the fetcher.
// Zero disables spacing.
func WithRequestDelay(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithBreaker trips after failures consecutive failures and stays open for
// openFor.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.breakerFailures = failures
		f.breakerOpenFor = openFor
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records fetch durations and failures.
func WithMetrics(m *prometheus.PipelineMetrics) Option {
	return func(f *HTTPFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// HTTPFetcher is the production Fetcher.  It is safe for concurrent use and
// meant to be shared by every worker of a run.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    logging.Logger
	metrics   *prometheus.PipelineMetrics

	breakerFailures uint32
	breakerOpenFor  time.Duration
}

// NewHTTPFetcher builds a fetcher.  Defaults: 20s client timeout, 4 MiB
// body cap, no request spacing, breaker tripping after 5 failures for 30s.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:          &http.Client{Timeout: 20 * time.Second},
		userAgent:       "fishlwr/1.0",
		maxBytes:        4 << 20,
		limiter:         rate.NewLimiter(rate.Inf, 1),
		logger:          logging.NewNopLogger(),
		metrics:         prometheus.NewNopMetrics(),
		breakerFailures: 5,
		breakerOpenFor:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-source",
		MaxRequests: 1,
		Timeout:     f.breakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= f.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			fe, ok := AsFetchError(err)
			return ok && fe.hostHealthy()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
	})
	return f
}

// Fetch retrieves url and parses it as HTML.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*html.Node, error) {
	body, err := f.FetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(url, body)
}

// Parse parses body as HTML, reporting failures as KindParse.
func Parse(url string, body []byte) (*html.Node, error) {
	node, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, toAppError(&FetchError{Kind: KindParse, URL: url, Err: err})
	}
	return node, nil
}

// FetchRaw retrieves url and returns its body.  A body longer than maxBytes
// is a KindTooLarge failure.
func (f *HTTPFetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, toAppError(&FetchError{Kind: classify(ctx, err), URL: url, Err: err})
	}

	start := time.Now()
	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.do(ctx, url)
	})
	if err != nil {
		fe, ok := AsFetchError(err)
		if !ok {
			// gobreaker.ErrOpenState or ErrTooManyRequests.
			fe = &FetchError{Kind: KindCircuitOpen, URL: url, Err: err}
		}
		f.metrics.RecordFetch(string(fe.Kind), time.Since(start))
		f.logger.Debug("fetch failed", logging.String("url", url), logging.String("kind", string(fe.Kind)), logging.Err(err))
		return nil, toAppError(fe)
	}
	f.metrics.RecordFetch("ok", time.Since(start))
	return out.([]byte), nil
}

func (f *HTTPFetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindConnection, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(ctx, err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Kind: KindHTTPStatus, URL: url, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: classify(ctx, err), URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &FetchError{Kind: KindTooLarge, URL: url,
			Err: fmt.Errorf("body exceeds %d bytes", f.maxBytes)}
	}
	return body, nil
}

// State returns the breaker state, for health reporting.
func (f *HTTPFetcher) State() gobreaker.State { return f.breaker.State() }

//Personal.AI order the ending
