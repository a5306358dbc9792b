package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/catalog"
	"github.com/EcMarius/secprobe/pkg/cli"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/metrics"
	"github.com/EcMarius/secprobe/pkg/output/exitcode"
	"github.com/EcMarius/secprobe/pkg/report"
	"github.com/EcMarius/secprobe/pkg/runner"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/tracing"
	"github.com/EcMarius/secprobe/pkg/ui"
)

type runFlags struct {
	suites   []string
	priority string
	yes      bool
}

func newRunCmd(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [BASE_URL]",
		Short: "Run the security suites and write a report",
		Long: `Run the selected suites in their fixed order, print the report and
save it as security_test_results_<timestamp>.json in the output directory.

Exit code is 1 when any probe found a vulnerability, 0 otherwise.`,
		Example: `  secprobe run
  secprobe run https://staging.example.com --yes
  secprobe run --suite mass-assignment --suite file-upload
  secprobe run --priority critical`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.configure(argAt(args, 0)); err != nil {
				return err
			}
			entries, err := selectEntries(flags)
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}
			return a.runFull(cmd.Context(), entries, flags.yes)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.suites, "suite", "s", nil,
		"Suite key to run, repeatable (known: "+strings.Join(catalog.Keys(), ", ")+")")
	cmd.Flags().StringVar(&flags.priority, "priority", "", "Run a priority group: critical or high")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("suite", "priority")
	return cmd
}

func selectEntries(flags *runFlags) ([]catalog.Entry, error) {
	if flags.priority != "" {
		return catalog.Priority(flags.priority)
	}
	return catalog.Select(flags.suites)
}

// runSession holds the per-run collaborators built from the settings.
type runSession struct {
	ctx      context.Context
	runID    string
	console  *ui.Console
	deps     catalog.Deps
	tracer   *tracing.Provider
	recorder *metrics.Recorder
	started  time.Time
	stop     func()
}

// begin builds the client, session, tracing and metrics for one run.
func (a *app) begin(parent context.Context) (*runSession, error) {
	if parent == nil {
		parent = context.Background()
	}
	cfg := a.cfg
	runID := uuid.NewString()
	log := a.log.With(zap.String("run_id", runID))

	ctx, cancel := cli.SignalContext(parent, duration.SignalGrace, a.stderr)

	tp, err := tracing.Setup(ctx, tracing.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
		RunID:    runID,
	})
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
		tp, _ = tracing.Setup(ctx, tracing.Options{})
	}

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		if rec, err = metrics.New(cfg.BaseURL); err != nil {
			cancel()
			return nil, exitcode.WithCode(exitcode.Failure, err)
		}
	}

	hc := httpclient.DefaultConfig()
	hc.InsecureSkipVerify = cfg.Insecure
	hc.Logger = log
	client := httpclient.New(hc)

	mgr, err := session.NewManager(session.Options{
		Target:       cfg.BaseURL,
		LoginPath:    cfg.Routes.Login,
		RegisterPath: cfg.Routes.Register,
		Source:       cfg.Session,
		Client:       client,
		Logger:       log,
	})
	if err != nil {
		cancel()
		return nil, exitcode.WithCode(exitcode.Failure, err)
	}

	console := ui.NewConsole(a.stdout, cfg.NoColor)
	base := attackconfig.Base{
		Target:   cfg.BaseURL,
		Client:   client,
		Session:  mgr,
		Routes:   cfg.Routes,
		Email:    cfg.Email,
		Password: cfg.Password,
		RunTag:   runID[:8],
		Pacing:   cfg.Pacing,
		Logger:   log,
		Tracer:   tp.Tracer(),
		OnRecord: console.Record,
	}

	return &runSession{
		ctx:      ctx,
		runID:    runID,
		console:  console,
		deps:     catalog.Deps{Base: base, AdminToken: cfg.AdminToken},
		tracer:   tp,
		recorder: rec,
		started:  time.Now(),
		stop: func() {
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn("trace flush failed", zap.Error(err))
			}
			cancel()
		},
	}, nil
}

// announce prints the banner, the plan and credential warnings.
func (a *app) announce(rs *runSession, entries []catalog.Entry) {
	rs.console.Banner(a.cfg.BaseURL, rs.started)
	rs.console.Infof("Run ID:  %s", rs.runID)
	rs.console.Infof("Suites:")
	p := rs.console.Palette()
	for _, e := range entries {
		rs.console.Infof("  - %-32s %s", e.Name, p.Severity(e.Severity).Render(e.Severity.Label()))
	}
	if !a.cfg.HasCredentials() {
		rs.console.Warnf("TEST_EMAIL/TEST_PASSWORD not set and no existing session: probes that need an account are skipped")
	}
}

func (a *app) runFull(parent context.Context, entries []catalog.Entry, yes bool) error {
	rs, err := a.begin(parent)
	if err != nil {
		return err
	}
	defer rs.stop()

	a.announce(rs, entries)
	if !yes {
		if f, ok := a.stdin.(*os.File); ok && !cli.IsInteractive(f) {
			fmt.Fprintln(a.stderr, "stdin is not a terminal, pass --yes to skip the confirmation")
		}
		fmt.Fprintln(a.stdout)
		if !cli.Confirm(a.stdin, a.stdout, "This will create test accounts and send attack payloads to the target. Continue?") {
			fmt.Fprintln(a.stdout, "Cancelled.")
			return nil
		}
	}

	r := &runner.Runner{
		Target:       a.cfg.BaseURL,
		RunID:        rs.runID,
		Gap:          a.cfg.SuiteGap,
		Logger:       a.log,
		Tracer:       rs.tracer.Tracer(),
		Metrics:      rs.recorder,
		OnSuiteStart: rs.console.SuiteStart,
		OnSuiteDone:  doneFunc(rs.console),
	}
	rep := r.Run(rs.ctx, catalog.Build(entries, rs.deps))

	if err := report.Render(a.stdout, rep, report.RenderOptions{NoColor: a.cfg.NoColor}); err != nil {
		a.log.Warn("render report", zap.Error(err))
	}
	a.saved(report.Save(a.cfg.OutputDir, rep))

	a.writeMetrics(rs.recorder)
	return codeFor(rep.Summary().Vulnerable)
}

func doneFunc(c *ui.Console) func(report.SuiteRun) {
	return func(run report.SuiteRun) {
		c.SuiteDone(run.Name, run.VulnerableCount(), run.TotalCount(), run.Duration, run.Error)
	}
}

// saved reports the outcome of writing results. A failed write does not
// change the exit code, which follows the vulnerable count only.
func (a *app) saved(path string, err error) {
	if err != nil {
		a.log.Error("results not saved", zap.Error(err))
		fmt.Fprintf(a.stderr, "error: save results: %v\n", err)
		return
	}
	fmt.Fprintf(a.stdout, "\nResults saved to: %s\n", path)
	a.log.Info("results saved", zap.String("path", path))
}

func (a *app) writeMetrics(rec *metrics.Recorder) {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := rec.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("metrics not written", zap.Error(err))
		fmt.Fprintf(a.stderr, "warning: %v\n", err)
	}
}

// codeFor turns a vulnerable count into the command's error return.
func codeFor(vulnerable int) error {
	code := exitcode.FromVulnerable(vulnerable)
	if code == exitcode.Success {
		return nil
	}
	return exitcode.WithCode(code, nil)
}
