// Package httpclient is the outbound HTTP stack used to reach the wholesale
// API: a pooled client with bounded retries, guarded by a circuit breaker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Doer executes an HTTP request.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

// DefaultConfig returns the defaults used for calls to the wholesale API.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 100,
		UserAgent:       "wholesale-storefront",
	}
}

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_client_retries_total",
	Help: "Outbound requests sent again after a retryable failure, by host and reason.",
}, []string{"host", "reason"})

// Client is a pooled http.Client that retries idempotent failures.
type Client struct {
	http   *http.Client
	config Config
}

// New creates a client with its own connection pool.
func New(cfg Config) *Client {
	return &Client{
		http:   &http.Client{Transport: newTransport(cfg.MaxConnsPerHost), Timeout: cfg.Timeout},
		config: cfg,
	}
}

func newTransport(connsPerHost int) *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   connsPerHost,
		MaxConnsPerHost:       connsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Do sends req, retrying transport failures and 5xx responses other than 501
// up to MaxRetries times. A request whose body cannot be rewound through
// GetBody is sent exactly once.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	retries := c.config.MaxRetries
	if !rewindable(req) {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.http.Do(req)
		reason := retryReason(resp, err)
		if reason == "" || attempt >= retries {
			if err != nil {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
			}
			return resp, nil
		}
		if resp != nil {
			drain(resp)
		}
		retriesTotal.WithLabelValues(req.URL.Host, reason).Inc()

		if err := sleep(ctx, jitter(c.backoff(attempt))); err != nil {
			return nil, err
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}
	}
}

// backoff doubles from RetryWaitMin per attempt, capped at RetryWaitMax.
func (c *Client) backoff(attempt int) time.Duration {
	if c.config.RetryWaitMin <= 0 {
		return 0
	}
	wait := c.config.RetryWaitMin << min(attempt, 20)
	if wait > c.config.RetryWaitMax {
		return c.config.RetryWaitMax
	}
	return wait
}

func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// retryReason names why an attempt may be repeated, or returns "" when the
// outcome is final. Cancellation and the caller's deadline are final.
func retryReason(resp *http.Response, err error) string {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ""
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return "transport"
		}
		return ""
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return "status_5xx"
	}
	return ""
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter spreads d by up to 25% either way.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := float64(d) / 4
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}
