// Package securitymisconfig detects deployment misconfiguration: exposed
// environment files, debug mode, information disclosure, missing security
// headers and permissive CORS.
package securitymisconfig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/finding"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "Configuration Security"

// Config configures misconfiguration scanning
type Config struct {
	attackconfig.Base
}

// DefaultConfig returns sensible defaults
func DefaultConfig(target string) Config {
	return Config{Base: attackconfig.DefaultBase(target)}
}

// Scanner runs the configuration probes.
type Scanner struct {
	config Config
	log    *zap.Logger
}

// NewScanner creates a scanner.
func NewScanner(config Config) *Scanner {
	config.Validate()
	return &Scanner{config: config, log: config.Logger.Named("securitymisconfig")}
}

// Suite returns the probe sequence.
func (s *Scanner) Suite() *suite.Sequence {
	return s.config.Sequence(SuiteName,
		probe.New("Environment File Exposure", s.envFiles),
		probe.New("Debug Mode Detection", s.debugMode),
		probe.New("Information Disclosure", s.disclosure),
		probe.New("Security Headers", s.securityHeaders),
		probe.New("CORS Misconfiguration", s.cors),
	)
}

func (s *Scanner) get(ctx context.Context, path string, noRedirect bool) httpclient.Outcome {
	req := httpclient.NewRequest(http.MethodGet, s.config.URL(path))
	req.Timeout = duration.HTTPBrute
	req.NoRedirect = noRedirect
	return s.config.Client.Do(ctx, req)
}

// secretMarkers flag an exposed env file that holds real secrets.
var secretMarkers = []string{"PASSWORD", "SECRET"}

func (s *Scanner) envFiles(ctx context.Context) (bool, string) {
	var found []string
	for _, path := range s.config.Routes.EnvFiles {
		out := s.get(ctx, path, true)
		if out.Status() != http.StatusOK {
			continue
		}
		entry := path
		body := strings.ToUpper(out.Response.Text())
		for _, m := range secretMarkers {
			if strings.Contains(body, m) {
				entry += " (contains secrets)"
				break
			}
		}
		found = append(found, entry)
	}
	if len(found) > 0 {
		return true, "Environment files accessible: " + strings.Join(found, ", ")
	}
	return false, "Environment files not accessible"
}

// DebugIndicators are strings only a framework debug page renders.
func DebugIndicators() []string {
	return []string{
		`Whoops\Handler`,
		"Stack trace",
		"vendor/laravel",
		"APP_DEBUG",
		"DebugBar",
		"Ignition",
	}
}

func (s *Scanner) debugMode(ctx context.Context) (bool, string) {
	out := s.get(ctx, s.config.Routes.ErrorPage, false)
	if !out.OK() {
		return false, "Could not test: " + out.Error()
	}
	body := out.Response.Text()
	for _, ind := range DebugIndicators() {
		if strings.Contains(body, ind) {
			return true, "Debug mode enabled - exposes sensitive information"
		}
	}
	return false, "Debug mode disabled (correct)"
}

// SensitiveKeywords are matched case-insensitively in disclosed bodies.
func SensitiveKeywords() []string {
	return []string{"key", "secret", "password", "token", "api", "stripe", "database"}
}

func (s *Scanner) disclosure(ctx context.Context) (bool, string) {
	var exposed []string
	for _, path := range s.config.Routes.Disclosure {
		out := s.get(ctx, path, false)
		if out.Status() != http.StatusOK {
			continue
		}
		body := strings.ToLower(out.Response.Text())
		var hits []string
		for _, kw := range SensitiveKeywords() {
			if strings.Contains(body, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			exposed = append(exposed, fmt.Sprintf("%s: %s", path, strings.Join(hits, ", ")))
		}
	}
	if len(exposed) > 0 {
		return true, "Sensitive information exposed: " + strings.Join(exposed, "; ")
	}
	return false, "No sensitive information disclosed"
}

// SecurityHeader is a response header and the values that make it strong.
type SecurityHeader struct {
	Name     string
	Severity finding.Severity
	Expected []string
}

// Strong reports whether value contains one of the expected tokens.
func (h SecurityHeader) Strong(value string) bool {
	v := strings.ToLower(value)
	for _, e := range h.Expected {
		if strings.Contains(v, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// RequiredSecurityHeaders returns security headers that should be present
func RequiredSecurityHeaders() []SecurityHeader {
	return []SecurityHeader{
		{Name: "X-Frame-Options", Severity: finding.Medium, Expected: []string{"DENY", "SAMEORIGIN"}},
		{Name: "X-Content-Type-Options", Severity: finding.Medium, Expected: []string{"nosniff"}},
		{Name: "X-XSS-Protection", Severity: finding.Low, Expected: []string{"1"}},
		{Name: "Strict-Transport-Security", Severity: finding.High, Expected: []string{"max-age"}},
		{Name: "Content-Security-Policy", Severity: finding.Medium, Expected: []string{"default-src"}},
	}
}

// CheckHeaders splits the required headers into missing and weak ones.
func CheckHeaders(h http.Header) (missing, weak []string) {
	for _, sh := range RequiredSecurityHeaders() {
		v := h.Get(sh.Name)
		switch {
		case v == "":
			missing = append(missing, sh.Name)
		case !sh.Strong(v):
			weak = append(weak, fmt.Sprintf("%s=%s", sh.Name, v))
		}
	}
	return missing, weak
}

func (s *Scanner) securityHeaders(ctx context.Context) (bool, string) {
	req := httpclient.NewRequest(http.MethodGet, s.config.Target)
	out := s.config.Client.Do(ctx, req)
	if !out.OK() {
		return false, "Could not test: " + out.Error()
	}
	missing, weak := CheckHeaders(out.Response.Header)
	if len(missing) == 0 && len(weak) == 0 {
		return false, "All security headers present and strong"
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "Missing: "+strings.Join(missing, ", "))
	}
	if len(weak) > 0 {
		parts = append(parts, "Weak: "+strings.Join(weak, ", "))
	}
	return true, strings.Join(parts, "; ")
}

func (s *Scanner) cors(ctx context.Context) (bool, string) {
	req := httpclient.NewRequest(http.MethodOptions, s.config.URL(s.config.Routes.Campaigns))
	req.Header.Set("Origin", defaults.HostileOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	out := s.config.Client.Do(ctx, req)
	if !out.OK() {
		return false, "Could not test: " + out.Error()
	}

	allowed := out.Response.Header.Get("Access-Control-Allow-Origin")
	switch {
	case allowed == "*":
		return true, "CORS allows all origins (*) - API accessible from any domain"
	case strings.Contains(allowed, "evil.com"):
		return true, "CORS accepts arbitrary origins"
	case allowed != "":
		return false, "CORS properly configured: " + allowed
	default:
		return false, "No CORS header present"
	}
}
