// Package suite runs an ordered, paced sequence of probes against one target.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/probe"
)

// Suite is a named group of probes. Run returns the records produced so far
// together with any error that stopped it early. A *SetupError means no
// probe could run; other errors mean the run must stop.
type Suite interface {
	Name() string
	Run(ctx context.Context) ([]probe.Record, error)
}

// SetupError reports that a suite could not prepare its preconditions,
// e.g. creating a test account.
type SetupError struct {
	Suite  string
	Reason string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: setup failed: %s: %v", e.Suite, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: setup failed: %s", e.Suite, e.Reason)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IsSetup reports whether err is a setup failure.
func IsSetup(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// Sequence is the Suite every probe package builds: an optional setup step
// followed by probes executed strictly one after another, Pacing apart.
type Sequence struct {
	Title  string
	Pacing time.Duration
	Setup  func(ctx context.Context) error
	Probes []probe.Probe

	Logger   *zap.Logger
	Tracer   trace.Tracer
	OnRecord func(probe.Record)
}

// Name returns the suite title used as its report key.
func (s *Sequence) Name() string { return s.Title }

// Len returns the number of probes the suite will run.
func (s *Sequence) Len() int { return len(s.Probes) }

// Run executes the suite.
func (s *Sequence) Run(ctx context.Context) ([]probe.Record, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := s.Tracer
	if tracer == nil {
		tracer = otel.Tracer("secprobe/suite")
	}
	log = log.With(zap.String("suite", s.Title))

	if s.Setup != nil {
		if err := s.Setup(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var se *SetupError
			if !errors.As(err, &se) {
				se = &SetupError{Suite: s.Title, Reason: "setup", Err: err}
			}
			return nil, se
		}
	}

	records := make([]probe.Record, 0, len(s.Probes))
	for i, p := range s.Probes {
		if i > 0 {
			if err := Sleep(ctx, s.Pacing); err != nil {
				return records, err
			}
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec := probe.Execute(ctx, tracer, p)
		if err := ctx.Err(); err != nil {
			log.Info("probe interrupted, record dropped", zap.String("probe", rec.Test))
			return records, err
		}
		records = append(records, rec)
		log.Info("probe finished",
			zap.String("probe", rec.Test),
			zap.Bool("vulnerable", rec.Success),
			zap.String("details", rec.Details))
		if s.OnRecord != nil {
			s.OnRecord(rec)
		}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("suite.records", len(records)))
	return records, nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
