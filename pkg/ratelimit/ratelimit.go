// Package ratelimit checks whether the target throttles brute-force
// traffic against its authentication endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/race"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "Rate Limiting"

// Thresholds above which the share of accepted attempts counts as missing
// rate limiting.
const (
	LoginThreshold    = 0.8
	RegisterThreshold = 0.7
	TokenThreshold    = 0.8
)

// Config holds rate limit probe configuration
type Config struct {
	attackconfig.Base

	// LoginAttempts is the number of wrong-password logins (default: 50)
	LoginAttempts int

	// RegisterAttempts is the number of registrations (default: 20)
	RegisterAttempts int

	// TokenAttempts is the number of set-password token guesses (default: 30)
	TokenAttempts int

	// ParallelRequests is the size of the simultaneous burst (default: 10)
	ParallelRequests int

	// LoginInterval spaces login and token attempts (default: 100ms)
	LoginInterval time.Duration

	// RegisterInterval spaces registration attempts (default: 200ms)
	RegisterInterval time.Duration
}

// DefaultConfig returns the attempt counts and spacing of a full run.
func DefaultConfig(target string) Config {
	base := attackconfig.DefaultBase(target)
	base.Pacing = duration.RateSuitePacing
	return Config{
		Base:             base,
		LoginAttempts:    50,
		RegisterAttempts: 20,
		TokenAttempts:    30,
		ParallelRequests: defaults.ConcurrencyParallelProbe,
		LoginInterval:    duration.LoginAttemptInterval,
		RegisterInterval: duration.RegisterAttemptInterval,
	}
}

// Tester runs the rate limiting probes.
type Tester struct {
	config Config
	race   *race.Tester
	log    *zap.Logger
}

// New creates a tester.
func New(config Config) *Tester {
	config.Validate()
	def := DefaultConfig(config.Target)
	if config.LoginAttempts <= 0 {
		config.LoginAttempts = def.LoginAttempts
	}
	if config.RegisterAttempts <= 0 {
		config.RegisterAttempts = def.RegisterAttempts
	}
	if config.TokenAttempts <= 0 {
		config.TokenAttempts = def.TokenAttempts
	}
	if config.ParallelRequests <= 0 {
		config.ParallelRequests = def.ParallelRequests
	}
	return &Tester{
		config: config,
		race:   race.NewTester(config.Client, config.ParallelRequests),
		log:    config.Logger.Named("ratelimit"),
	}
}

// Suite returns the probe sequence.
func (t *Tester) Suite() *suite.Sequence {
	return t.config.Sequence(SuiteName,
		probe.New("Login Rate Limiting", t.loginRateLimit),
		probe.New("Registration Rate Limiting", t.registrationRateLimit),
		probe.New("Token Enumeration Rate Limiting", t.tokenEnumeration),
		probe.New("Parallel Request Handling", t.parallelRequests),
	)
}

// attempt sends n requests spaced by interval and tallies the answers.
// It stops early when ctx is cancelled.
func (t *Tester) attempt(ctx context.Context, n int, interval time.Duration,
	build func(i int) *httpclient.Request, success func(httpclient.Outcome) bool,
) race.Tally {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	lim := rate.NewLimiter(limit, 1)

	var tally race.Tally
	for i := 0; i < n; i++ {
		if err := lim.Wait(ctx); err != nil {
			break
		}
		tally.Add(t.config.Client.Do(ctx, build(i)), success)
	}
	t.log.Debug("attempts finished", zap.Int("planned", n), zap.Stringer("tally", tally))
	return tally
}

func (t *Tester) loginRequest(password string, timeout time.Duration) *httpclient.Request {
	req := httpclient.JSON(http.MethodPost, t.config.URL(t.config.Routes.Login), map[string]string{
		"email":    defaults.ProbeEmail,
		"password": password,
	})
	req.Timeout = timeout
	return req
}

func (t *Tester) loginRateLimit(ctx context.Context) (bool, string) {
	n := t.config.LoginAttempts
	tally := t.attempt(ctx, n, t.config.LoginInterval, func(i int) *httpclient.Request {
		return t.loginRequest(fmt.Sprintf("wrongpass%d", i), duration.HTTPBrute)
	}, nil)

	if tally.Ratio(n) > LoginThreshold {
		return true, fmt.Sprintf("No rate limiting! %d/%d attempts succeeded", tally.Succeeded, n)
	}
	return false, fmt.Sprintf("Rate limiting active: %d/%d blocked", tally.Blocked, n)
}

func (t *Tester) registrationRateLimit(ctx context.Context) (bool, string) {
	n := t.config.RegisterAttempts
	tally := t.attempt(ctx, n, t.config.RegisterInterval, func(i int) *httpclient.Request {
		acct := session.NewAccount("rate-test", fmt.Sprintf("Rate Test %d", i), t.config.RunTag)
		req := httpclient.JSON(http.MethodPost, t.config.URL(t.config.Routes.Register), map[string]string{
			"name":                  acct.Name,
			"email":                 acct.Email,
			"password":              acct.Password,
			"password_confirmation": acct.Password,
		})
		req.Timeout = duration.HTTPBrute
		return req
	}, func(out httpclient.Outcome) bool {
		return out.StatusIn(http.StatusOK, http.StatusCreated, http.StatusFound)
	})

	if tally.Ratio(n) > RegisterThreshold {
		return true, fmt.Sprintf("Weak/no rate limiting: %d/%d succeeded", tally.Succeeded, n)
	}
	return false, fmt.Sprintf("Rate limiting active: %d/%d blocked", tally.Blocked, n)
}

func (t *Tester) tokenEnumeration(ctx context.Context) (bool, string) {
	n := t.config.TokenAttempts
	tally := t.attempt(ctx, n, t.config.LoginInterval, func(i int) *httpclient.Request {
		req := httpclient.JSON(http.MethodPost, t.config.URL(t.config.Routes.SetPassword), map[string]string{
			"token":                 fmt.Sprintf("token-test-%d", i),
			"password":              "NewPass123",
			"password_confirmation": "NewPass123",
		})
		req.Timeout = duration.HTTPBrute
		return req
	}, nil)

	if tally.Ratio(n) > TokenThreshold {
		return true, fmt.Sprintf("No rate limiting on token endpoint! %d/%d attempts succeeded", tally.Succeeded, n)
	}
	return false, fmt.Sprintf("Rate limiting active: %d/%d blocked", tally.Blocked, n)
}

func (t *Tester) parallelRequests(ctx context.Context) (bool, string) {
	n := t.config.ParallelRequests
	outcomes := t.race.SendConcurrent(ctx, n, func(i int) *httpclient.Request {
		return t.loginRequest(fmt.Sprintf("parallel%d", i), duration.HTTPStandard)
	})
	tally := race.Analyze(outcomes)

	if tally.AllSucceeded() {
		return true, fmt.Sprintf("%d/%d succeeded (no rate limiting on parallel requests)", tally.Succeeded, tally.Total)
	}
	return false, fmt.Sprintf("%d/%d requests blocked (%d succeeded, %d failed)",
		tally.Blocked, tally.Total, tally.Succeeded, tally.Failed)
}
