package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.Pacing = 0
	cfg.LoginInterval = 0
	cfg.RegisterInterval = 0
	cfg.LoginAttempts = 10
	cfg.RegisterAttempts = 10
	cfg.TokenAttempts = 10
	return cfg
}

func TestSuite_NoRateLimiting(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
	}))
	defer server.Close()

	records, err := New(fastConfig(server.URL)).Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "Login Rate Limiting", records[0].Test)
	assert.Equal(t, "No rate limiting! 10/10 attempts succeeded", records[0].Details)
	assert.Equal(t, "Weak/no rate limiting: 10/10 succeeded", records[1].Details)
	assert.Equal(t, "No rate limiting on token endpoint! 10/10 attempts succeeded", records[2].Details)
	assert.Equal(t, "10/10 succeeded (no rate limiting on parallel requests)", records[3].Details)
	for _, r := range records {
		assert.True(t, r.Success, r.Test)
	}
}

func TestSuite_Throttled(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	records, err := New(fastConfig(server.URL)).Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.False(t, records[0].Success)
	assert.Equal(t, "Rate limiting active: 5/10 blocked", records[0].Details)
	assert.False(t, records[1].Success, "401 is not an accepted registration")
	assert.False(t, records[2].Success)
	assert.False(t, records[3].Success)
	assert.Contains(t, records[3].Details, "/10 requests blocked")
}

func TestSuite_InterruptedLoginLoopLeavesNoRecord(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.LoginAttempts = 50
	cfg.LoginInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	records, err := New(cfg).Suite().Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, records, "a cut-short login loop must not report a verdict")
}

func TestParallelRequests_Unreachable(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	vuln, details := New(fastConfig(url)).parallelRequests(context.Background())
	assert.False(t, vuln)
	assert.Equal(t, "0/10 requests blocked (0 succeeded, 10 failed)", details)
}

func TestAttempt_StopsOnCancel(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vuln, details := New(fastConfig(server.URL)).loginRateLimit(ctx)
	assert.False(t, vuln)
	assert.Equal(t, "Rate limiting active: 0/10 blocked", details)
}

func TestNew_FillsDefaults(t *testing.T) {
	t.Parallel()
	tester := New(Config{})
	assert.Equal(t, 50, tester.config.LoginAttempts)
	assert.Equal(t, 20, tester.config.RegisterAttempts)
	assert.Equal(t, 30, tester.config.TokenAttempts)
	assert.Equal(t, 10, tester.config.ParallelRequests)
}
