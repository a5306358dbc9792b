package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/EcMarius/secprobe/pkg/finding"
)

// Color palette
var (
	Primary = lipgloss.Color("#7D56F4")

	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

// NewRenderer returns a lipgloss renderer for w. Colour is dropped when
// noColor is set, NO_COLOR is exported or w is not a terminal.
func NewRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor || termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Palette holds the styles shared by the console and the report.
type Palette struct {
	Renderer   *lipgloss.Renderer
	Title      lipgloss.Style
	Header     lipgloss.Style
	Vulnerable lipgloss.Style
	Secure     lipgloss.Style
	Warning    lipgloss.Style
	Muted      lipgloss.Style
	Bold       lipgloss.Style
}

// NewPalette builds the styles on r.
func NewPalette(r *lipgloss.Renderer) Palette {
	return Palette{
		Renderer:   r,
		Title:      r.NewStyle().Bold(true).Foreground(Primary),
		Header:     r.NewStyle().Bold(true),
		Vulnerable: r.NewStyle().Bold(true).Foreground(Error),
		Secure:     r.NewStyle().Foreground(Success),
		Warning:    r.NewStyle().Foreground(Warning),
		Muted:      r.NewStyle().Foreground(Muted),
		Bold:       r.NewStyle().Bold(true),
	}
}

// Severity returns the style for a severity label.
func (p Palette) Severity(s finding.Severity) lipgloss.Style {
	st := p.Renderer.NewStyle().Bold(true)
	switch s {
	case finding.Critical:
		return st.Foreground(Critical)
	case finding.High:
		return st.Foreground(High)
	case finding.Medium:
		return st.Foreground(Medium)
	case finding.Low:
		return st.Foreground(Low)
	default:
		return st.Foreground(Info)
	}
}
