package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcMarius/secprobe/pkg/httpclient"
)

func newManager(t *testing.T, target string, src Source) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		Target:       target,
		LoginPath:    "/api/auth/login",
		RegisterPath: "/register",
		Source:       src,
	})
	require.NoError(t, err)
	return m
}

func loginServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		assert.Equal(t, "qa@example.com", creds["email"])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAcquire_Login(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		token   string
		wantErr error
	}{
		{"token field", 200, `{"token":"1|abc"}`, "1|abc", nil},
		{"access_token field", 200, `{"access_token":"xyz"}`, "xyz", nil},
		{"rejected", 401, `{"message":"Unauthenticated."}`, "", ErrLoginFailed},
		{"no token", 200, `{"user":{}}`, "", ErrNoToken},
		{"html body", 200, `<html></html>`, "", ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := loginServer(t, tt.status, tt.body)
			m := newManager(t, server.URL, Source{})

			cred, err := m.Acquire(context.Background(), "qa@example.com", "pw")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindToken, cred.Kind)
			assert.Equal(t, tt.token, cred.Token)
			assert.Equal(t, "Login successful", cred.Note)
		})
	}
}

func TestAcquire_LoginStatusInMessage(t *testing.T) {
	t.Parallel()
	server := loginServer(t, 422, `{}`)
	_, err := newManager(t, server.URL, Source{}).Acquire(context.Background(), "qa@example.com", "pw")
	assert.EqualError(t, err, "login failed: status 422")
}

func TestAcquire_MissingCredentials(t *testing.T) {
	t.Parallel()
	m := newManager(t, "https://evenleads.com", Source{})
	_, err := m.Acquire(context.Background(), "qa@example.com", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAcquire_ExistingCookiesJSON(t *testing.T) {
	t.Parallel()
	m := newManager(t, "https://evenleads.com", Source{
		UseExisting: true,
		CookiesJSON: `{"laravel_session":"s1","XSRF-TOKEN":"x%3D1"}`,
		APIToken:    "ignored",
	})

	cred, err := m.Acquire(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, KindCookies, cred.Kind)
	assert.Equal(t, "Using existing session cookies", cred.Note)
	assert.Len(t, cred.Cookies, 2)

	req := httpclient.NewRequest(http.MethodGet, "https://evenleads.com/api/user/profile")
	Apply(cred, req)
	assert.Len(t, req.Cookies, 2)
	assert.Equal(t, "x=1", req.Header.Get("X-XSRF-TOKEN"))

	info := m.Info()
	assert.Equal(t, "existing", info.Mode)
	assert.Equal(t, "SESSION_COOKIES", info.Source)
	assert.ElementsMatch(t, []string{"laravel_session", "XSRF-TOKEN"}, info.CookieNames)
}

func TestAcquire_ExistingLaravelSession(t *testing.T) {
	t.Parallel()
	m := newManager(t, "https://evenleads.com", Source{
		UseExisting:    true,
		CookiesJSON:    `not json`,
		LaravelSession: "s2",
	})

	cred, err := m.Acquire(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, cred.Cookies, 1)
	assert.Equal(t, "laravel_session", cred.Cookies[0].Name)

	info := m.Info()
	assert.Equal(t, "LARAVEL_SESSION", info.Source)
	require.Len(t, info.Warnings, 1)
	assert.Contains(t, info.Warnings[0], "SESSION_COOKIES")
}

func TestAcquire_ExistingToken(t *testing.T) {
	t.Parallel()
	m := newManager(t, "https://evenleads.com", Source{UseExisting: true, APIToken: "1|sanctum"})

	cred, err := m.Acquire(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, KindToken, cred.Kind)
	assert.Equal(t, "Using existing API token", cred.Note)

	req := httpclient.NewRequest(http.MethodGet, "https://evenleads.com")
	Apply(cred, req)
	assert.Equal(t, "Bearer 1|sanctum", req.Header.Get("Authorization"))
}

func TestAcquire_ExistingWithoutData(t *testing.T) {
	t.Parallel()
	m := newManager(t, "https://evenleads.com", Source{UseExisting: true})
	_, err := m.Acquire(context.Background(), "qa@example.com", "pw")
	assert.ErrorIs(t, err, ErrNoSessionData)
	assert.Equal(t, "none", m.Info().Source)
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()
	var registered map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			_ = json.NewDecoder(r.Body).Decode(&registered)
			w.WriteHeader(http.StatusCreated)
		case "/api/auth/login":
			_, _ = w.Write([]byte(`{"token":"new-user-token"}`))
		}
	}))
	defer server.Close()

	m := newManager(t, server.URL, Source{})
	acct := NewAccount("admin-test", "Admin Test", "abcd1234")
	token, err := m.CreateAccount(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "new-user-token", token)
	assert.Equal(t, acct.Email, registered["email"])
	assert.Equal(t, "Password123", registered["password_confirmation"])
	assert.Equal(t, "Admin Test [secprobe abcd1234]", registered["name"])
}

func TestCreateAccount_RegisterRejected(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newManager(t, server.URL, Source{}).CreateAccount(context.Background(), NewAccount("x", "X", ""))
	assert.ErrorContains(t, err, "status 422")
}

func TestInspectToken(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	ti, ok := InspectToken(signed)
	require.True(t, ok)
	assert.Equal(t, "42", ti.Subject)
	require.NotNil(t, ti.ExpiresAt)
	assert.True(t, ti.ExpiresAt.Equal(exp))
	assert.True(t, ti.Expired(time.Now()))

	_, ok = InspectToken("1|opaque-sanctum-token")
	assert.False(t, ok)
}

func TestInfo_LoginMode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "login", newManager(t, "https://evenleads.com", Source{}).Info().Mode)
}
