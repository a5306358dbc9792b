package massassignment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcMarius/secprobe/pkg/probe"
)

// fakeApp stores registration payloads as-is, like a model whose $fillable
// contains every column.
type fakeApp struct {
	mu       sync.Mutex
	users    map[string]map[string]any
	accept   bool
	register int
}

func newFakeApp(accept bool) *fakeApp {
	return &fakeApp{users: map[string]map[string]any{}, accept: accept}
}

func (a *fakeApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case r.URL.Path == "/register":
		a.register++
		if !a.accept {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.users[body["email"].(string)] = body
		w.WriteHeader(http.StatusCreated)
	case r.URL.Path == "/api/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := a.users[body["email"]]; !ok && body["email"] != "qa@example.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": body["email"]})
	case r.URL.Path == "/api/user/profile":
		email := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		user, ok := a.users[email]
		if !ok {
			user = map[string]any{"email": email}
			a.users[email] = user
		}
		if r.Method == http.MethodPut {
			if !a.accept {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			for k, v := range body {
				user[k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": user})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTester(url string, withCreds bool) *Tester {
	cfg := DefaultConfig(url)
	cfg.Pacing = 0
	cfg.RunTag = "testrun1"
	if withCreds {
		cfg.Email, cfg.Password = "qa@example.com", "pw"
	}
	return New(cfg)
}

func TestSuite_VulnerableApp(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(newFakeApp(true))
	defer server.Close()

	records, err := newTester(server.URL, true).Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 5)

	byName := map[string]probe.Record{}
	for _, r := range records {
		byName[r.Test] = r
		assert.True(t, r.Success, r.Test)
	}

	admin := byName["Admin Escalation (Registration)"]
	assert.Contains(t, admin.Details, "Registration succeeded with role_id=1! Account: mass-assign-")
	assert.Contains(t, admin.Details, "testrun1@example.com")
	assert.Contains(t, admin.Details, "(confirmed: role_id=1 persisted)")

	assert.Contains(t, byName["Bypass Flags (Registration)"].Details, "(confirmed: bypass_ai_reply_limit persisted)")
	assert.Contains(t, byName["Trial Manipulation (Registration)"].Details, probe.Unconfirmed)
	assert.Equal(t, "Profile updated with escalated privileges! (confirmed: role_id=1 persisted)",
		byName["Profile Update Escalation"].Details)
}

func TestSuite_SecureApp(t *testing.T) {
	t.Parallel()
	app := newFakeApp(false)
	server := httptest.NewServer(app)
	defer server.Close()

	records, err := newTester(server.URL, true).Suite().Run(context.Background())
	require.NoError(t, err)

	want := map[string]string{
		"Admin Escalation (Registration)":   "Registration rejected or failed",
		"Bypass Flags (Registration)":       "Bypass flags rejected",
		"Trial Manipulation (Registration)": "Trial date manipulation rejected",
		"Email Verification Bypass":         "Email verification bypass prevented",
		"Profile Update Escalation":         "Profile update rejected",
	}
	require.Len(t, records, len(want))
	for _, r := range records {
		assert.False(t, r.Success, r.Test)
		assert.Equal(t, want[r.Test], r.Details)
	}
	assert.Equal(t, 5, app.register, "email verification probe registers twice")
}

func TestSuite_WithoutCredentialsSkipsProfileProbe(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(newFakeApp(false))
	defer server.Close()

	seq := newTester(server.URL, false).Suite()
	assert.Equal(t, 4, seq.Len())
	assert.Equal(t, SuiteName, seq.Name())
}

func TestSuite_Unreachable(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	records, err := newTester(url, false).Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records[:3] {
		assert.False(t, r.Success)
		assert.True(t, strings.HasPrefix(r.Details, "Error: "), r.Details)
	}
	assert.Equal(t, "Email verification bypass prevented", records[3].Details)
}

func TestDangerousParameters(t *testing.T) {
	t.Parallel()
	params := DangerousParameters()
	assert.NotEmpty(t, params)
	for _, p := range params {
		assert.True(t, p.Severity.IsValid(), p.Name)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, normalize(float64(1)))
	assert.Equal(t, 1, normalize(true))
	assert.Equal(t, 0, normalize(false))
	assert.Equal(t, "x", normalize("x"))
}
