package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/catalog"
	"github.com/EcMarius/secprobe/pkg/output/exitcode"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/report"
	"github.com/EcMarius/secprobe/pkg/runner"
	"github.com/EcMarius/secprobe/pkg/suite"
)

func newSuiteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suite KEY [BASE_URL]",
		Short: "Run a single suite and save its results array",
		Long: `Run one suite on its own and save the bare results array to
results_<KEY>.json in the output directory.

Known keys: ` + strings.Join(catalog.Keys(), ", "),
		Example: `  secprobe suite rate-limiting
  secprobe suite config-security https://staging.example.com`,
		Args: cobra.RangeArgs(1, 2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return catalog.Keys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := catalog.Lookup(args[0])
			if !ok {
				return exitcode.WithCode(exitcode.Failure,
					fmt.Errorf("%w: %q (known: %s)", catalog.ErrUnknownSuite, args[0], strings.Join(catalog.Keys(), ", ")))
			}
			if err := a.configure(argAt(args, 1)); err != nil {
				return err
			}
			return a.runStandalone(cmd, entry)
		},
	}
}

func (a *app) runStandalone(cmd *cobra.Command, entry catalog.Entry) error {
	rs, err := a.begin(cmd.Context())
	if err != nil {
		return err
	}
	defer rs.stop()

	a.announce(rs, []catalog.Entry{entry})

	r := &runner.Runner{
		Target:       a.cfg.BaseURL,
		RunID:        rs.runID,
		Logger:       a.log,
		Tracer:       rs.tracer.Tracer(),
		Metrics:      rs.recorder,
		OnSuiteStart: rs.console.SuiteStart,
		OnSuiteDone:  doneFunc(rs.console),
	}
	rep := r.Run(rs.ctx, []suite.Suite{entry.Build(rs.deps)})

	var records []probe.Record
	if len(rep.Suites) > 0 {
		records = rep.Suites[0].Records
	}
	fmt.Fprintln(a.stdout)
	if err := report.RenderSuite(a.stdout, entry.Name, records, report.RenderOptions{NoColor: a.cfg.NoColor}); err != nil {
		a.log.Warn("render results", zap.Error(err))
	}

	a.saved(report.SaveSuite(a.cfg.OutputDir, entry.Key, records))

	a.writeMetrics(rs.recorder)
	return codeFor(rep.Summary().Vulnerable)
}
