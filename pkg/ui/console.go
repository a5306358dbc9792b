package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
)

// Console prints live progress while suites run. It is safe for use from
// the runner's hooks.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	p  Palette
}

// NewConsole returns a console writing to w.
func NewConsole(w io.Writer, noColor bool) *Console {
	return &Console{w: w, p: NewPalette(NewRenderer(w, noColor))}
}

// Palette returns the console styles.
func (c *Console) Palette() Palette { return c.p }

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.w }

// Banner prints the run header.
func (c *Console) Banner(target string, started time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	PrintBanner(c.w, c.p, target, started)
}

// SuiteStart announces a suite.
func (c *Console) SuiteStart(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.p.Header.Render(Rule("-")))
	fmt.Fprintln(c.w, c.p.Header.Render("  "+name))
	fmt.Fprintln(c.w, c.p.Header.Render(Rule("-")))
}

// Record prints one probe verdict.
func (c *Console) Record(r probe.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, RecordLine(c.p, r))
}

// RecordLine formats a verdict and its details on two lines.
func RecordLine(p Palette, r probe.Record) string {
	tag := p.Secure.Render("[SECURE]")
	if r.Success {
		tag = p.Vulnerable.Render("[VULNERABLE]")
	}
	return fmt.Sprintf("%s %s\n    └─ %s\n", tag, r.Test, r.Details)
}

// SuiteDone prints a one-line suite result.
func (c *Console) SuiteDone(name string, vulnerable, total int, elapsed time.Duration, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reason != "" {
		fmt.Fprintln(c.w, c.p.Warning.Render(fmt.Sprintf("  %s stopped: %s", name, reason)))
	}
	line := fmt.Sprintf("  %d/%d vulnerable in %.1fs", vulnerable, total, elapsed.Seconds())
	if vulnerable > 0 {
		fmt.Fprintln(c.w, c.p.Vulnerable.Render(line))
		return
	}
	fmt.Fprintln(c.w, c.p.Secure.Render(line))
}

// Infof prints an informational line.
func (c *Console) Infof(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}

// Warnf prints a warning line.
func (c *Console) Warnf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.p.Warning.Render(fmt.Sprintf(format, args...)))
}

// Session prints the session summary.
func (c *Console) Session(info session.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w, c.p.Header.Render("Session"))
	fmt.Fprintf(c.w, "  Mode:    %s\n", info.Mode)
	if info.Source != "" {
		fmt.Fprintf(c.w, "  Source:  %s\n", info.Source)
	}
	if len(info.CookieNames) > 0 {
		fmt.Fprintf(c.w, "  Cookies: %s\n", strings.Join(info.CookieNames, ", "))
	}
	if info.TokenPreview != "" {
		fmt.Fprintf(c.w, "  Token:   %s\n", info.TokenPreview)
	}
	if info.Token != nil {
		if info.Token.Subject != "" {
			fmt.Fprintf(c.w, "  Subject: %s\n", info.Token.Subject)
		}
		if info.Token.ExpiresAt != nil {
			exp := info.Token.ExpiresAt.Format(time.RFC3339)
			if info.Token.Expired(time.Now()) {
				exp = c.p.Vulnerable.Render(exp + " (expired)")
			}
			fmt.Fprintf(c.w, "  Expires: %s\n", exp)
		}
	}
	for _, w := range info.Warnings {
		fmt.Fprintln(c.w, c.p.Warning.Render("  ! "+w))
	}
}
