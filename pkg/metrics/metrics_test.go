package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/report"
)

func TestRecorder_Counts(t *testing.T) {
	t.Parallel()
	r, err := New("https://evenleads.com")
	require.NoError(t, err)

	records := []probe.Record{
		probe.NewRecord("Security Headers", true, "Missing: X-Frame-Options"),
		probe.NewRecord("CORS Misconfiguration", false, "No CORS header present"),
		probe.NewRecord("Debug Mode Detection", false, "Debug mode disabled (correct)"),
	}
	for _, rec := range records {
		r.ObserveRecord("Configuration Security", rec)
	}
	r.ObserveSuite(report.SuiteRun{Name: "Configuration Security", Records: records, Duration: 3 * time.Second})
	r.ObserveSuite(report.SuiteRun{Name: "Admin Authorization", Error: "could not create test account"})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.probesTotal.WithLabelValues("Configuration Security", VerdictVulnerable)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.probesTotal.WithLabelValues("Configuration Security", VerdictSecure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.vulnerabilities.WithLabelValues("Configuration Security")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.suiteDuration.WithLabelValues("Configuration Security")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.suiteErrors.WithLabelValues("Admin Authorization")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.suiteErrors), "only the failed suite has an error series")
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()
	r, err := New("https://evenleads.com")
	require.NoError(t, err)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r.ObserveReport(report.New("id", "https://evenleads.com", start).Seal(start.Add(90*time.Second), ""))

	path := filepath.Join(t.TempDir(), "secprobe.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `secprobe_run_duration_seconds{target="https://evenleads.com"} 90`)
	assert.True(t, strings.Contains(out, "# TYPE secprobe_last_run_timestamp_seconds gauge"))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRecord("x", probe.NewRecord("t", true, "d"))
		r.ObserveSuite(report.SuiteRun{Name: "x"})
		r.ObserveReport(report.RunReport{})
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
	assert.Nil(t, r.Registry())
}
