package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/EcMarius/secprobe/pkg/catalog"
	"github.com/EcMarius/secprobe/pkg/ui"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List the available suites",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			p := ui.NewPalette(ui.NewRenderer(a.stdout, noColor))

			entries := catalog.All()
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(p.Renderer.NewStyle()).
				Headers("Key", "Suite", "Severity", "Checks").
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == table.HeaderRow:
						return p.Header.Padding(0, 1)
					case col == 2 && row >= 0 && row < len(entries):
						return p.Severity(entries[row].Severity).Padding(0, 1)
					}
					return p.Renderer.NewStyle().Padding(0, 1)
				})
			for _, e := range entries {
				t.Row(e.Key, e.Name, e.Severity.Label(), e.Description)
			}
			fmt.Fprintln(a.stdout, t.Render())
			fmt.Fprintln(a.stdout, "\nPriority groups: critical (mass-assignment, file-upload, admin-authorization),")
			fmt.Fprintln(a.stdout, "                 high (rate-limiting, business-logic, config-security)")
			return nil
		},
	}
}
