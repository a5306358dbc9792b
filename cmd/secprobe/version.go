package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/ui"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "%s %s (commit %s, built %s)\n", defaults.ToolName, ui.Version, ui.Commit, ui.BuildDate)
		},
	}
}
