package securitymisconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanner(url string) *Scanner {
	cfg := DefaultConfig(url)
	cfg.Pacing = 0
	return NewScanner(cfg)
}

func TestSuite_Misconfigured(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.env":
			_, _ = w.Write([]byte("APP_KEY=base64:x\nDB_PASSWORD=hunter2\n"))
		case "/.env.example":
			_, _ = w.Write([]byte("APP_NAME=Laravel\n"))
		case "/error/test":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<title>Ignition</title> Stack trace`))
		case "/composer.json":
			_, _ = w.Write([]byte(`{"require":{"stripe/stripe-php":"^10"}}`))
		case "/api/v1/campaigns":
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		case "/":
			w.Header().Set("X-Frame-Options", "ALLOW-FROM https://x.com")
			w.Header().Set("X-Content-Type-Options", "nosniff")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	records, err := newScanner(server.URL).Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, r := range records {
		assert.True(t, r.Success, r.Test)
	}

	assert.Equal(t, "Environment files accessible: /.env.example, /.env (contains secrets)", records[0].Details)
	assert.Equal(t, "Debug mode enabled - exposes sensitive information", records[1].Details)
	assert.Equal(t, "Sensitive information exposed: /composer.json: stripe", records[2].Details)
	assert.Equal(t,
		"Missing: X-XSS-Protection, Strict-Transport-Security, Content-Security-Policy; "+
			"Weak: X-Frame-Options=ALLOW-FROM https://x.com",
		records[3].Details)
	assert.Equal(t, "CORS accepts arbitrary origins", records[4].Details)
}

func TestSuite_Hardened(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
		case "/api/v1/campaigns":
			w.Header().Set("Access-Control-Allow-Origin", "https://evenleads.com")
		case "/.env":
			http.Redirect(w, r, "/", http.StatusFound)
		case "/api/v1/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not Found"))
		}
	}))
	defer server.Close()

	records, err := newScanner(server.URL).Suite().Run(context.Background())
	require.NoError(t, err)

	want := []string{
		"Environment files not accessible",
		"Debug mode disabled (correct)",
		"No sensitive information disclosed",
		"All security headers present and strong",
		"CORS properly configured: https://evenleads.com",
	}
	require.Len(t, records, len(want))
	for i, r := range records {
		assert.False(t, r.Success, r.Test)
		assert.Equal(t, want[i], r.Details)
	}
}

func TestCORS_Variants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header  string
		vuln    bool
		details string
	}{
		{"*", true, "CORS allows all origins (*) - API accessible from any domain"},
		{"", false, "No CORS header present"},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodOptions, r.Method)
			assert.Equal(t, "https://evil.com", r.Header.Get("Origin"))
			if tt.header != "" {
				w.Header().Set("Access-Control-Allow-Origin", tt.header)
			}
		}))
		vuln, details := newScanner(server.URL).cors(context.Background())
		server.Close()
		assert.Equal(t, tt.vuln, vuln)
		assert.Equal(t, tt.details, details)
	}
}

func TestDebugMode_Unreachable(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	vuln, details := newScanner(url).debugMode(context.Background())
	assert.False(t, vuln)
	assert.Contains(t, details, "Could not test")
}

func TestCheckHeaders(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Set("X-Frame-Options", "sameorigin")
	missing, weak := CheckHeaders(h)
	assert.Len(t, missing, 4)
	assert.Empty(t, weak)
}
