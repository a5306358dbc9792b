package accesscontrol

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcMarius/secprobe/pkg/suite"
)

func newTester(url, token string) *Tester {
	cfg := DefaultConfig(url)
	cfg.Pacing = 0
	cfg.RequestGap = 0
	cfg.Token = token
	return New(cfg)
}

func TestSuite_BrokenAuthorization(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/api/v1/admin/schemas/1" && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/admin/plugins/upload":
			_, _, err := r.FormFile("plugin")
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/admin/users":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	records, err := newTester(server.URL, "user-token").Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.True(t, records[0].Success)
	assert.Contains(t, records[0].Details, "Regular user can access admin endpoints!")
	assert.Contains(t, records[0].Details, "DELETE /api/v1/admin/schemas/1 (204)")

	assert.True(t, records[1].Success)
	assert.Contains(t, records[1].Details, "Regular user can upload plugins! (RCE possible)")

	assert.True(t, records[2].Success)
	assert.Equal(t, "Regular user accessed admin panel! /admin/users", records[2].Details)
}

func TestSuite_Protected(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	records, err := newTester(server.URL, "user-token").Suite().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Admin endpoints properly protected", records[0].Details)
	assert.Equal(t, "Plugin upload blocked for regular users", records[1].Details)
	assert.Equal(t, "Admin panel properly protected", records[2].Details)
}

func TestSuite_CreatesAccount(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			w.WriteHeader(http.StatusFound)
		case "/api/auth/login":
			_, _ = w.Write([]byte(`{"access_token":"fresh"}`))
		default:
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	records, err := newTester(server.URL, "").Suite().Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSuite_SetupFailure(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	records, err := newTester(server.URL, "").Suite().Run(context.Background())
	assert.Empty(t, records)
	require.Error(t, err)
	assert.True(t, suite.IsSetup(err))
	assert.Contains(t, err.Error(), "could not create test account")
}

func TestPluginArchive(t *testing.T) {
	t.Parallel()
	data, err := PluginArchive()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "plugin.json", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	assert.JSONEq(t, `{"name":"test-plugin","version":"1.0.0"}`, string(content))
}
