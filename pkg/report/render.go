package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/ui"
)

// RenderOptions controls report rendering.
type RenderOptions struct {
	NoColor bool
}

// Percent formats a vulnerable share with one decimal, "0.0%" when total
// is zero.
func Percent(vulnerable, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(vulnerable)/float64(total)*100)
}

// Render writes the end-of-run report to w.
func Render(w io.Writer, r RunReport, opts RenderOptions) error {
	p := ui.NewPalette(ui.NewRenderer(w, opts.NoColor))
	_, err := io.WriteString(w, render(p, r))
	return err
}

func render(p ui.Palette, r RunReport) string {
	var b strings.Builder
	sum := r.Summary()

	b.WriteString("\n")
	b.WriteString(p.Title.Render(ui.Rule("=")) + "\n")
	b.WriteString(p.Title.Render("  SECURITY TEST REPORT") + "\n")
	b.WriteString(p.Title.Render(ui.Rule("=")) + "\n")
	fmt.Fprintf(&b, "  Target:   %s\n", r.Target)
	if r.RunID != "" {
		fmt.Fprintf(&b, "  Run ID:   %s\n", r.RunID)
	}
	fmt.Fprintf(&b, "  Started:  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  Duration: %.1fs\n\n", r.Duration().Seconds())

	b.WriteString(p.Header.Render("Overall Statistics") + "\n")
	fmt.Fprintf(&b, "  Test suites: %d\n", len(r.Suites))
	fmt.Fprintf(&b, "  Total tests: %d\n", sum.TotalTests)
	fmt.Fprintf(&b, "  Vulnerable:  %s\n", countStyle(p, sum.Vulnerable).Render(strconv.Itoa(sum.Vulnerable)))
	fmt.Fprintf(&b, "  Secure:      %s\n\n", p.Secure.Render(strconv.Itoa(sum.Secure)))

	if len(r.Suites) > 0 {
		b.WriteString(suiteTable(p, r.Suites))
		b.WriteString("\n\n")
	}

	if sum.Vulnerable > 0 {
		writeVulnerabilities(&b, p, r, sum)
	} else {
		b.WriteString(p.Secure.Render(ui.Rule("=")) + "\n")
		b.WriteString(p.Secure.Render("  ALL TESTS PASSED") + "\n")
		b.WriteString(p.Secure.Render(ui.Rule("=")) + "\n")
		b.WriteString("  No vulnerabilities detected in tested areas.\n")
	}

	if r.Aborted != "" {
		b.WriteString("\n")
		b.WriteString(p.Warning.Render("Run aborted: "+r.Aborted+" (partial report)") + "\n")
	}
	return b.String()
}

func countStyle(p ui.Palette, vulnerable int) lipgloss.Style {
	if vulnerable > 0 {
		return p.Vulnerable
	}
	return p.Secure
}

func suiteTable(p ui.Palette, suites []SuiteRun) string {
	rows := make([][]string, 0, len(suites))
	for _, s := range suites {
		status := "PASS"
		if !s.Passed() {
			status = "FAIL"
		}
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.TotalCount()),
			strconv.Itoa(s.VulnerableCount()),
			Percent(s.VulnerableCount(), s.TotalCount()),
			fmt.Sprintf("%.1fs", s.Duration.Seconds()),
			status,
		})
	}

	cell := p.Renderer.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.Renderer.NewStyle()).
		Headers("Test Suite", "Tests", "Vulnerable", "%", "Time", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.Header.Padding(0, 1)
			case col == 5 && row >= 0 && row < len(rows) && rows[row][5] == "FAIL":
				return p.Vulnerable.Padding(0, 1)
			case col == 5:
				return p.Secure.Padding(0, 1)
			}
			return cell
		})
	return t.Render()
}

func writeVulnerabilities(b *strings.Builder, p ui.Palette, r RunReport, sum Summary) {
	b.WriteString(p.Vulnerable.Render(ui.Rule("=")) + "\n")
	b.WriteString(p.Vulnerable.Render("  VULNERABILITIES DETECTED") + "\n")
	b.WriteString(p.Vulnerable.Render(ui.Rule("=")) + "\n")

	n := 0
	for _, s := range r.Suites {
		vulns := s.Vulnerabilities()
		if len(vulns) == 0 {
			continue
		}
		b.WriteString("\n" + p.Header.Render(s.Name) + "\n")
		for _, v := range vulns {
			n++
			fmt.Fprintf(b, "  %d. %s\n", n, v.Test)
			fmt.Fprintf(b, "     └─ %s\n", v.Details)
		}
	}

	b.WriteString("\n")
	b.WriteString(p.Vulnerable.Render(fmt.Sprintf("CRITICAL: %d security vulnerabilities found!", sum.Vulnerable)) + "\n")

	if recs := Recommendations(r); len(recs) > 0 {
		b.WriteString("\n" + p.Header.Render("RECOMMENDED ACTIONS") + "\n")
		for i, rec := range recs {
			fmt.Fprintf(b, "  %d. %s\n", i+1, rec)
		}
	}
}

// RenderSuite writes the results of a standalone suite run to w.
func RenderSuite(w io.Writer, name string, records []probe.Record, opts RenderOptions) error {
	p := ui.NewPalette(ui.NewRenderer(w, opts.NoColor))
	run := SuiteRun{Name: name, Records: records}

	var b strings.Builder
	b.WriteString(p.Header.Render(name) + "\n")
	for _, rec := range records {
		b.WriteString(ui.RecordLine(p, rec))
	}
	fmt.Fprintf(&b, "\n%d/%d vulnerable (%s)\n",
		run.VulnerableCount(), run.TotalCount(), Percent(run.VulnerableCount(), run.TotalCount()))
	_, err := io.WriteString(w, b.String())
	return err
}
