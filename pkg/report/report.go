package report

import (
	"time"

	"github.com/EcMarius/secprobe/pkg/probe"
)

// SuiteRun is the outcome of running one suite.
type SuiteRun struct {
	Name     string
	Records  []probe.Record
	Duration time.Duration

	// Error holds the setup failure or abort reason, if any.
	Error string
}

// TotalCount returns the number of records.
func (s SuiteRun) TotalCount() int { return len(s.Records) }

// VulnerableCount returns the number of records with a positive verdict.
func (s SuiteRun) VulnerableCount() int {
	n := 0
	for _, r := range s.Records {
		if r.Success {
			n++
		}
	}
	return n
}

// Passed reports whether no record is vulnerable.
func (s SuiteRun) Passed() bool { return s.VulnerableCount() == 0 }

// VulnerablePercent returns the vulnerable share in percent, 0 for an
// empty suite.
func (s SuiteRun) VulnerablePercent() float64 {
	if len(s.Records) == 0 {
		return 0
	}
	return float64(s.VulnerableCount()) / float64(len(s.Records)) * 100
}

// Vulnerabilities returns the vulnerable records in probe order.
func (s SuiteRun) Vulnerabilities() []probe.Record {
	var out []probe.Record
	for _, r := range s.Records {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Summary holds the run-wide counts.
type Summary struct {
	TotalTests int `json:"total_tests"`
	Vulnerable int `json:"vulnerable"`
	Secure     int `json:"secure"`
}

// RunReport aggregates the suite runs of one invocation.
type RunReport struct {
	RunID      string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time

	// Suites is in execution order.
	Suites []SuiteRun

	// Aborted is the reason iteration stopped early, empty for a full run.
	Aborted string
}

// New starts a report.
func New(runID, target string, startedAt time.Time) RunReport {
	return RunReport{
		RunID:      runID,
		Target:     target,
		StartedAt:  startedAt,
		FinishedAt: startedAt,
	}
}

// With returns a copy of r with run appended.
func (r RunReport) With(run SuiteRun) RunReport {
	suites := make([]SuiteRun, len(r.Suites), len(r.Suites)+1)
	copy(suites, r.Suites)
	r.Suites = append(suites, run)
	return r
}

// Seal returns a copy of r finished at finishedAt. A finish time before the
// start is clamped to the start.
func (r RunReport) Seal(finishedAt time.Time, aborted string) RunReport {
	if finishedAt.Before(r.StartedAt) {
		finishedAt = r.StartedAt
	}
	r.FinishedAt = finishedAt
	r.Aborted = aborted
	return r
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary counts records across all suites.
func (r RunReport) Summary() Summary {
	var s Summary
	for _, run := range r.Suites {
		s.TotalTests += run.TotalCount()
		s.Vulnerable += run.VulnerableCount()
	}
	s.Secure = s.TotalTests - s.Vulnerable
	return s
}

// Suite returns the run with the given name. When a name repeats, the
// later run wins.
func (r RunReport) Suite(name string) (SuiteRun, bool) {
	for i := len(r.Suites) - 1; i >= 0; i-- {
		if r.Suites[i].Name == name {
			return r.Suites[i], true
		}
	}
	return SuiteRun{}, false
}

// Names returns the suite names in execution order.
func (r RunReport) Names() []string {
	names := make([]string, 0, len(r.Suites))
	for _, s := range r.Suites {
		names = append(names, s.Name)
	}
	return names
}
