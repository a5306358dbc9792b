// Package session supplies credentials to probes that need an account.
//
// Two modes exist. In existing-session mode the operator pastes cookies or
// an API token from a logged-in browser; in login mode the manager posts an
// e-mail and password to the login route and keeps the returned token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/httpclient"
)

// Sentinel errors returned by Acquire and Login.
var (
	ErrNoSessionData      = errors.New("ACCOUNT_EXISTING is set but no session data provided")
	ErrMissingCredentials = errors.New("email and password required for login")
	ErrLoginFailed        = errors.New("login failed")
	ErrNoToken            = errors.New("no token in login response")
)

const (
	laravelSessionCookie = "laravel_session"
	xsrfCookie           = "XSRF-TOKEN"
	xsrfHeader           = "X-XSRF-TOKEN"
)

// Source is the existing-session material read from configuration.
type Source struct {
	UseExisting    bool
	CookiesJSON    string // JSON object of cookie name to value
	LaravelSession string
	XSRFToken      string
	APIToken       string
}

// Kind says how a credential is presented to the target.
type Kind int

const (
	KindNone Kind = iota
	KindToken
	KindCookies
)

// Credential is what Apply attaches to a request.
type Credential struct {
	Kind    Kind
	Token   string
	Cookies []*http.Cookie
	Note    string
}

// Options configures a Manager.
type Options struct {
	Target       string
	LoginPath    string
	RegisterPath string
	Source       Source
	Client       *httpclient.Client
	Logger       *zap.Logger
}

// Manager resolves credentials for one target.
type Manager struct {
	target      *url.URL
	loginURL    string
	registerURL string
	src         Source
	client      *httpclient.Client
	jar         *cookiejar.Jar
	cookieSrc   string
	warnings    []string
	log         *zap.Logger
}

// NewManager parses the target and loads any existing-session cookies into
// a jar scoped to the target's domain.
func NewManager(opts Options) (*Manager, error) {
	u, err := url.Parse(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("session: parse target: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("session: cookie jar: %w", err)
	}
	if opts.Client == nil {
		opts.Client = httpclient.New(httpclient.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	base := strings.TrimRight(opts.Target, "/")
	m := &Manager{
		target:      u,
		loginURL:    base + opts.LoginPath,
		registerURL: base + opts.RegisterPath,
		src:         opts.Source,
		client:      opts.Client,
		jar:         jar,
		log:         opts.Logger.Named("session"),
	}
	if m.src.UseExisting {
		m.loadCookies()
	}
	return m, nil
}

func (m *Manager) loadCookies() {
	var cookies []*http.Cookie
	if raw := strings.TrimSpace(m.src.CookiesJSON); raw != "" {
		var values map[string]string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			m.warn("could not parse SESSION_COOKIES as a JSON object: " + err.Error())
		} else {
			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				cookies = append(cookies, &http.Cookie{Name: name, Value: values[name]})
			}
			m.cookieSrc = "SESSION_COOKIES"
		}
	}
	if len(cookies) == 0 && m.src.LaravelSession != "" {
		cookies = append(cookies, &http.Cookie{Name: laravelSessionCookie, Value: m.src.LaravelSession})
		if m.src.XSRFToken != "" {
			cookies = append(cookies, &http.Cookie{Name: xsrfCookie, Value: m.src.XSRFToken})
		}
		m.cookieSrc = "LARAVEL_SESSION"
	}
	if len(cookies) > 0 {
		m.jar.SetCookies(m.target, cookies)
	}
}

func (m *Manager) warn(msg string) {
	m.warnings = append(m.warnings, msg)
	m.log.Warn(msg)
}

// Existing reports whether the manager is in existing-session mode.
func (m *Manager) Existing() bool { return m.src.UseExisting }

// Acquire returns a credential. In existing-session mode email and password
// are ignored; cookies take precedence over an API token.
func (m *Manager) Acquire(ctx context.Context, email, password string) (Credential, error) {
	if m.src.UseExisting {
		if cookies := m.jar.Cookies(m.target); len(cookies) > 0 {
			return Credential{Kind: KindCookies, Cookies: cookies, Note: "Using existing session cookies"}, nil
		}
		if m.src.APIToken != "" {
			m.checkExpiry(m.src.APIToken)
			return Credential{Kind: KindToken, Token: m.src.APIToken, Note: "Using existing API token"}, nil
		}
		return Credential{}, ErrNoSessionData
	}

	if email == "" || password == "" {
		return Credential{}, ErrMissingCredentials
	}
	token, err := m.Login(ctx, email, password)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Kind: KindToken, Token: token, Note: "Login successful"}, nil
}

// Login posts credentials to the login route and extracts the token from
// "token" or "access_token".
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	out := m.client.Do(ctx, httpclient.JSON(http.MethodPost, m.loginURL, map[string]string{
		"email":    email,
		"password": password,
	}))
	if !out.OK() {
		return "", fmt.Errorf("%w: %s", ErrLoginFailed, out.Error())
	}
	if out.Status() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLoginFailed, out.Status())
	}

	parsed := out.Response.Parse()
	if !parsed.IsJSON() {
		return "", fmt.Errorf("%w: response is not JSON", ErrNoToken)
	}
	token, ok := parsed.String("token", "access_token")
	if !ok {
		return "", ErrNoToken
	}
	m.checkExpiry(token)
	m.log.Info("login successful", zap.String("email", email))
	return token, nil
}

// Account is a user created on the target by a probe.
type Account struct {
	Name     string
	Email    string
	Password string
}

// NewAccount returns a run-tagged account with the fixture password.
func NewAccount(prefix, label, tag string) Account {
	return Account{
		Name:     defaults.AccountName(label, tag),
		Email:    defaults.TestEmail(prefix, tag),
		Password: defaults.Password,
	}
}

// Register posts a registration form with extra fields merged in. The
// outcome is returned as-is for the caller to judge.
func (m *Manager) Register(ctx context.Context, acct Account, extra map[string]any) httpclient.Outcome {
	payload := map[string]any{
		"name":                  acct.Name,
		"email":                 acct.Email,
		"password":              acct.Password,
		"password_confirmation": acct.Password,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return m.client.Do(ctx, httpclient.JSON(http.MethodPost, m.registerURL, payload))
}

// CreateAccount registers acct and logs in as it.
func (m *Manager) CreateAccount(ctx context.Context, acct Account) (string, error) {
	out := m.Register(ctx, acct, nil)
	if !out.StatusIn(http.StatusOK, http.StatusCreated, http.StatusFound) {
		if !out.OK() {
			return "", fmt.Errorf("session: register %s: %s", acct.Email, out.Error())
		}
		return "", fmt.Errorf("session: register %s: status %d", acct.Email, out.Status())
	}
	m.log.Info("test account created", zap.String("email", acct.Email))
	return m.Login(ctx, acct.Email, acct.Password)
}

// Apply attaches cred to req. Cookie credentials also send the XSRF token
// header Laravel expects alongside the XSRF-TOKEN cookie.
func Apply(cred Credential, req *httpclient.Request) {
	switch cred.Kind {
	case KindToken:
		req.SetBearer(cred.Token)
	case KindCookies:
		req.Cookies = append(req.Cookies, cred.Cookies...)
		for _, c := range cred.Cookies {
			if c.Name == xsrfCookie {
				v, err := url.QueryUnescape(c.Value)
				if err != nil {
					v = c.Value
				}
				req.Header.Set(xsrfHeader, v)
			}
		}
	}
}
