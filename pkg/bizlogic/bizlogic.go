// Package bizlogic probes business rules: organization roles, plan-check
// caching and trial resets.
package bizlogic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "Business Logic"

// CacheFactor is how much slower than the mean of the later requests the
// first request must be to suggest a cached plan check.
const CacheFactor = 1.3

// Config configures business logic testing
type Config struct {
	attackconfig.Base

	// CacheSamples is the number of timed campaign requests (default: 10)
	CacheSamples int
}

// DefaultConfig returns sensible defaults
func DefaultConfig(target string) Config {
	return Config{Base: attackconfig.DefaultBase(target), CacheSamples: 10}
}

// Tester runs the business logic probes.
type Tester struct {
	config Config
	log    *zap.Logger
}

// NewTester creates a tester.
func NewTester(config Config) *Tester {
	config.Validate()
	if config.CacheSamples < 2 {
		config.CacheSamples = 10
	}
	return &Tester{config: config, log: config.Logger.Named("bizlogic")}
}

// Suite returns the probe sequence. Trial reset needs an account and is
// left out without credentials; plan cache detection reports itself skipped.
func (t *Tester) Suite() *suite.Sequence {
	probes := []probe.Probe{
		probe.New("Organization Role Manipulation", t.roleManipulation),
		probe.New("Plan Cache Detection", t.planCache),
	}
	if t.config.HasCredentials() {
		probes = append(probes, probe.New("Trial Reset via Update", t.trialReset))
	}
	return t.config.Sequence(SuiteName, probes...)
}

func (t *Tester) roleManipulation(ctx context.Context) (bool, string) {
	acct := session.NewAccount("org-test", "Org Test", t.config.RunTag)
	out := t.config.Session.Register(ctx, acct, map[string]any{
		"team_role":       "owner",
		"organization_id": 1,
	})
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if out.StatusIn(http.StatusOK, http.StatusCreated, http.StatusFound) {
		return true, probe.Qualify(
			fmt.Sprintf("User registered with team_role='owner'! Email: %s", acct.Email), false, "")
	}
	return false, "Role manipulation rejected"
}

func (t *Tester) planCache(ctx context.Context) (bool, string) {
	if !t.config.HasCredentials() {
		return false, "Skipped - requires authentication"
	}
	cred, err := t.config.Session.Acquire(ctx, t.config.Email, t.config.Password)
	if err != nil {
		return false, "Could not authenticate: " + err.Error()
	}

	var times []time.Duration
	for i := 0; i < t.config.CacheSamples; i++ {
		req := httpclient.NewRequest(http.MethodGet, t.config.URL(t.config.Routes.Campaigns))
		req.Header.Set("Accept", defaults.ContentTypeJSON)
		session.Apply(cred, req)
		out := t.config.Client.Do(ctx, req)
		if !out.OK() {
			t.log.Debug("campaign request failed", zap.Int("sample", i), zap.String("reason", out.Error()))
			if i == 0 {
				// The cold sample is the one being compared.
				return false, "Could not test (first request failed)"
			}
			continue
		}
		times = append(times, out.Elapsed)
	}
	if len(times) < 2 {
		return false, "Could not test (too few responses)"
	}

	first, avg := CacheTiming(times)
	if first > avg*CacheFactor {
		return true, fmt.Sprintf("Plan check appears cached (first:%.3fs, avg:%.3fs)", first, avg)
	}
	return false, "No significant caching detected"
}

// CacheTiming returns the first sample and the mean of the rest, in seconds.
func CacheTiming(times []time.Duration) (first, avg float64) {
	if len(times) == 0 {
		return 0, 0
	}
	first = times[0].Seconds()
	if len(times) == 1 {
		return first, 0
	}
	var sum float64
	for _, d := range times[1:] {
		sum += d.Seconds()
	}
	return first, sum / float64(len(times)-1)
}

func (t *Tester) trialReset(ctx context.Context) (bool, string) {
	cred, err := t.config.Session.Acquire(ctx, t.config.Email, t.config.Password)
	if err != nil {
		return false, "Could not authenticate: " + err.Error()
	}
	req := httpclient.JSON(http.MethodPut, t.config.URL(t.config.Routes.Profile), map[string]any{
		"trial_activated_at": nil,
		"trial_ends_at":      nil,
	})
	session.Apply(cred, req)
	out := t.config.Client.Do(ctx, req)
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if out.StatusIn(http.StatusOK, http.StatusCreated) {
		return true, probe.Qualify("Trial fields can be reset! Unlimited trials possible", false, "")
	}
	return false, "Trial reset rejected"
}
