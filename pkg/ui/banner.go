package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/EcMarius/secprobe/pkg/defaults"
)

// Version information - these can be overridden at build time via ldflags:
// go build -ldflags "-X github.com/EcMarius/secprobe/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

// RuleWidth is the width of horizontal rules.
const RuleWidth = 70

// Rule returns a horizontal line of c.
func Rule(c string) string {
	return strings.Repeat(c, RuleWidth)
}

// PrintBanner prints the tool header for a run against target.
func PrintBanner(w io.Writer, p Palette, target string, started time.Time) {
	fmt.Fprintln(w, p.Title.Render(Rule("=")))
	fmt.Fprintln(w, p.Title.Render(fmt.Sprintf("  %s %s - black-box security probes", defaults.ToolName, Version)))
	fmt.Fprintln(w, p.Title.Render(Rule("=")))
	fmt.Fprintf(w, "  Target:  %s\n", target)
	fmt.Fprintf(w, "  Started: %s\n", started.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, p.Warning.Render("  Only run against systems you are authorized to test."))
	fmt.Fprintln(w)
}
