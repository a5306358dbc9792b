// Package httpclient provides the HTTP wrapper every probe goes through.
// It never returns transport errors to probes: each call yields an Outcome
// that is either a response, a network failure or a timeout.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/iohelper"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the per-request timeout when a Request sets none (default: 10s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// UserAgent is sent unless a request overrides it
	UserAgent string

	// MaxBodySize caps how much of each response body is kept (default: 1MB)
	MaxBodySize int64

	// MaxConnsPerHost bounds connections to the target (default: 25)
	MaxConnsPerHost int

	// Logger receives one debug entry per request
	Logger *zap.Logger
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.HTTPStandard,
		UserAgent:       defaults.UserAgent,
		MaxBodySize:     defaults.MaxBodySize,
		MaxConnsPerHost: 25,
	}
}

// Client sends probe requests. It is safe for concurrent use.
type Client struct {
	follow    *http.Client
	direct    *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
	log       *zap.Logger
}

// New creates a client. Zero-value fields fall back to DefaultConfig.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   duration.DialTimeout,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	return &Client{
		follow: &http.Client{Transport: transport},
		direct: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// Probes that ask for no redirects need to see the 3xx itself.
				return http.ErrUseLastResponse
			},
		},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodySize,
		log:       cfg.Logger,
	}
}

// Do sends the request and classifies what happened. It never panics and
// never returns an error; failures are reported through the Outcome.
func (c *Client) Do(ctx context.Context, r *Request) Outcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := r.build(ctx)
	if err != nil {
		return Outcome{Kind: NetworkFailure, Reason: err.Error()}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	hc := c.follow
	if r.NoRedirect {
		hc = c.direct
	}

	resp, err := hc.Do(req)
	if err != nil {
		out := failure(err, timeout, time.Since(start))
		c.log.Debug("request failed",
			zap.String("method", r.Method),
			zap.String("url", r.URL),
			zap.String("outcome", out.Kind.String()),
			zap.String("reason", out.Reason))
		return out
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadBody(resp.Body, c.maxBody)
	elapsed := time.Since(start)
	if err != nil {
		return failure(err, timeout, elapsed)
	}

	c.log.Debug("request done",
		zap.String("method", r.Method),
		zap.String("url", r.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return Outcome{
		Kind: OK,
		Response: &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		},
		Elapsed: elapsed,
	}
}

func failure(err error, timeout, elapsed time.Duration) Outcome {
	if isTimeout(err) {
		return Outcome{
			Kind:    Timeout,
			Reason:  fmt.Sprintf("no response within %s", timeout),
			Elapsed: elapsed,
		}
	}
	reason := err.Error()
	if errors.Is(err, context.Canceled) {
		reason = "request cancelled"
	}
	return Outcome{Kind: NetworkFailure, Reason: reason, Elapsed: elapsed}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
