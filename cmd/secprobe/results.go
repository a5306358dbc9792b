package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/EcMarius/secprobe/pkg/cli"
	"github.com/EcMarius/secprobe/pkg/history"
	"github.com/EcMarius/secprobe/pkg/output/exitcode"
	"github.com/EcMarius/secprobe/pkg/report"
	"github.com/EcMarius/secprobe/pkg/ui"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Browse saved result files",
	}
	cmd.AddCommand(newResultsListCmd(a), newResultsShowCmd(a), newResultsCleanCmd(a))
	return cmd
}

func (a *app) store() (*history.Store, error) {
	if err := a.configure(""); err != nil {
		return nil, err
	}
	return history.NewStore(a.cfg.OutputDir), nil
}

func newResultsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List result files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			entries, err := s.List()
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			if len(entries) == 0 {
				fmt.Fprintf(a.stdout, "No result files in %s\n", s.Dir())
				return nil
			}

			p := ui.NewPalette(ui.NewRenderer(a.stdout, a.cfg.NoColor))
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(p.Renderer.NewStyle()).
				Headers("#", "File", "Kind", "Modified", "Size").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return p.Header.Padding(0, 1)
					}
					return p.Renderer.NewStyle().Padding(0, 1)
				})
			for i, e := range entries {
				t.Row(strconv.Itoa(i+1), e.Name, string(e.Kind),
					e.ModTime.Format("2006-01-02 15:04:05"), humanSize(e.Size))
			}
			fmt.Fprintln(a.stdout, t.Render())
			return nil
		},
	}
}

func newResultsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [FILE|latest]",
		Short: "Render a saved result file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			e, err := s.Resolve(argAt(args, 0))
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			fmt.Fprintf(a.stdout, "%s (%s)\n", e.Name, e.ModTime.Format("2006-01-02 15:04:05"))
			if err := s.Show(a.stdout, e, report.RenderOptions{NoColor: a.cfg.NoColor}); err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			return nil
		},
	}
}

func newResultsCleanCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete all result files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			entries, err := s.List()
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "No result files to delete.")
				return nil
			}
			if !yes && !cli.Confirm(a.stdin, a.stdout, fmt.Sprintf("Delete %d result files from %s?", len(entries), s.Dir())) {
				fmt.Fprintln(a.stdout, "Cancelled.")
				return nil
			}
			n, err := s.DeleteAll()
			fmt.Fprintf(a.stdout, "Deleted %d result files.\n", n)
			if err != nil && !errors.Is(err, history.ErrNoResults) {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
