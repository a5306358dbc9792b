package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/EcMarius/secprobe/pkg/finding"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
)

func TestConsole_Record(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Record(probe.NewRecord("Security Headers", true, "Missing: X-Frame-Options"))
	c.Record(probe.NewRecord("Debug Mode Detection", false, "Debug mode disabled (correct)"))

	assert.Equal(t,
		"[VULNERABLE] Security Headers\n    └─ Missing: X-Frame-Options\n"+
			"[SECURE] Debug Mode Detection\n    └─ Debug mode disabled (correct)\n",
		buf.String())
}

func TestConsole_SuiteLifecycle(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.SuiteStart("Rate Limiting")
	c.SuiteDone("Rate Limiting", 2, 4, 1500*time.Millisecond, "")
	c.SuiteDone("Admin Authorization", 0, 0, 0, "setup failed")

	out := buf.String()
	assert.Contains(t, out, "  Rate Limiting\n")
	assert.Contains(t, out, "  2/4 vulnerable in 1.5s")
	assert.Contains(t, out, "Admin Authorization stopped: setup failed")
}

func TestConsole_Session(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	exp := time.Now().Add(-time.Hour)
	NewConsole(&buf, true).Session(session.Info{
		Mode:         "existing",
		Source:       "API_TOKEN",
		TokenPreview: "eyJhbGciOiJIUzI1NiIs...",
		Token:        &session.TokenInfo{Subject: "42", ExpiresAt: &exp},
		Warnings:     []string{"could not parse SESSION_COOKIES"},
	})

	out := buf.String()
	assert.Contains(t, out, "Mode:    existing")
	assert.Contains(t, out, "Subject: 42")
	assert.Contains(t, out, "(expired)")
	assert.Contains(t, out, "! could not parse SESSION_COOKIES")
}

func TestBanner(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.Banner("https://evenleads.com", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Contains(t, buf.String(), "Target:  https://evenleads.com")
	assert.Contains(t, buf.String(), "Started: 2026-01-02 03:04:05")
}

func TestPalette_SeverityPlainWithoutColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := NewPalette(NewRenderer(&buf, true))
	assert.Equal(t, "CRITICAL", p.Severity(finding.Critical).Render("CRITICAL"))
}
