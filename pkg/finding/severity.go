package finding

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Severity represents the severity level of a suite.
// Values are lowercase strings so they round-trip through flags and JSON.
type Severity string

const (
	// Critical represents immediate compromise (privilege escalation, RCE).
	Critical Severity = "critical"

	// High represents abuse with significant impact (brute force, billing bypass).
	High Severity = "high"

	// Medium represents exposure that helps an attacker (debug output, headers).
	Medium Severity = "medium"

	// Low represents limited impact.
	Low Severity = "low"

	// Info represents informational findings.
	Info Severity = "info"
)

var (
	upper = cases.Upper(language.Und)
	title = cases.Title(language.Und)
)

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// Label returns the upper-case form shown in the suite catalog.
func (s Severity) Label() string {
	return upper.String(string(s))
}

// Title returns the title-case form, e.g. "Critical".
func (s Severity) Title() string {
	return title.String(string(s))
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", fmt.Errorf("finding: unknown severity %q", v)
	}
	return s, nil
}
