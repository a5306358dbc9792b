// Package runner executes suites one after another and folds their results
// into a run report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/metrics"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/report"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// Runner executes suites sequentially. Suites never overlap: a suite may
// leave state on the target (accounts, lockouts) that the next one must
// not race with.
type Runner struct {
	Target string
	RunID  string

	// Gap is the pause between two suites (default: none).
	Gap time.Duration

	Logger  *zap.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Recorder

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// OnSuiteStart is called before a suite runs.
	OnSuiteStart func(name string)

	// OnSuiteDone is called with each finished suite, including one that
	// failed setup or was aborted.
	OnSuiteDone func(run report.SuiteRun)
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.Tracer == nil {
		r.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if r.Now == nil {
		r.Now = time.Now
	}
}

// Run executes suites in order and returns the sealed report.
//
// A setup failure is recorded on its suite and the run continues. Any other
// error, a panic or cancellation of ctx records the suite that was running
// and stops; the report then carries the reason in Aborted. Run never
// loses a suite run that has completed.
func (r *Runner) Run(ctx context.Context, suites []suite.Suite) report.RunReport {
	r.defaults()
	log := r.Logger.With(zap.String("run_id", r.RunID))

	rep := report.New(r.RunID, r.Target, r.Now())
	seen := map[string]bool{}
	aborted := ""

	log.Info("run started", zap.String("target", r.Target), zap.Int("suites", len(suites)))

	for i, s := range suites {
		if i > 0 {
			if err := suite.Sleep(ctx, r.Gap); err != nil {
				aborted = reason(ctx, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			aborted = reason(ctx, err)
			break
		}

		name := s.Name()
		if seen[name] {
			log.Warn("duplicate suite name, later results win on read-back", zap.String("suite", name))
		}
		seen[name] = true

		run, err := r.runSuite(ctx, s)
		rep = rep.With(run)
		if r.OnSuiteDone != nil {
			r.OnSuiteDone(run)
		}

		switch {
		case err == nil:
		case suite.IsSetup(err):
			log.Warn("suite setup failed", zap.String("suite", name), zap.Error(err))
		default:
			aborted = reason(ctx, err)
			log.Error("suite aborted, stopping run", zap.String("suite", name), zap.Error(err))
		}
		if aborted != "" {
			break
		}
	}

	rep = rep.Seal(r.Now(), aborted)
	r.Metrics.ObserveReport(rep)

	sum := rep.Summary()
	log.Info("run finished",
		zap.Int("suites", len(rep.Suites)),
		zap.Int("total", sum.TotalTests),
		zap.Int("vulnerable", sum.Vulnerable),
		zap.Duration("elapsed", rep.Duration()),
		zap.String("aborted", aborted))
	return rep
}

func (r *Runner) runSuite(ctx context.Context, s suite.Suite) (report.SuiteRun, error) {
	name := s.Name()
	ctx, span := r.Tracer.Start(ctx, "suite "+name, trace.WithAttributes(
		attribute.String("suite.name", name),
		attribute.String("run.id", r.RunID),
	))
	defer span.End()

	if r.OnSuiteStart != nil {
		r.OnSuiteStart(name)
	}

	start := r.Now()
	records, err := safeRun(ctx, s)
	run := report.SuiteRun{
		Name:     name,
		Records:  records,
		Duration: r.Now().Sub(start),
	}
	if err != nil {
		run.Error = reason(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, run.Error)
	}

	for _, rec := range records {
		r.Metrics.ObserveRecord(name, rec)
	}
	r.Metrics.ObserveSuite(run)

	span.SetAttributes(
		attribute.Int("suite.total", run.TotalCount()),
		attribute.Int("suite.vulnerable", run.VulnerableCount()),
	)
	return run, err
}

// safeRun calls s.Run, turning a panic into an error.
func safeRun(ctx context.Context, s suite.Suite) (records []probe.Record, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrSuitePanic, rec)
		}
	}()
	return s.Run(ctx)
}

// reason describes why a suite or the run stopped, preferring the cause
// attached to a cancelled context.
func reason(ctx context.Context, err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if cause := context.Cause(ctx); cause != nil {
			return cause.Error()
		}
	}
	return err.Error()
}
