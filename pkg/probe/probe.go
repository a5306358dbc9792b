// Package probe defines a single security check and the record it yields.
//
// A probe always produces a verdict. Failures to reach the target, panics
// and malformed responses become verdict=false with an explanation in
// Details, so a probe can never abort the suite that runs it.
package probe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NoDetails replaces an empty details string.
const NoDetails = "no details reported"

// Record is the outcome of one probe. Success true means a vulnerability
// condition was observed. Records are values and are never modified after
// NewRecord returns them.
type Record struct {
	Test      string    `json:"test"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord stamps a record with the current time.
func NewRecord(test string, vulnerable bool, details string) Record {
	if details == "" {
		details = NoDetails
	}
	return Record{
		Test:      test,
		Success:   vulnerable,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// Vulnerable is a readability alias for Success.
func (r Record) Vulnerable() bool { return r.Success }

// Func performs the check and reports (vulnerable, details).
type Func func(ctx context.Context) (bool, string)

// Probe is a named check.
type Probe struct {
	Name string
	Run  Func
}

// New returns a named probe.
func New(name string, fn Func) Probe {
	return Probe{Name: name, Run: fn}
}

// Execute runs p and wraps its verdict in a Record. A panic inside the probe
// is converted into a secure verdict with the panic value in the details.
func Execute(ctx context.Context, tracer trace.Tracer, p Probe) (rec Record) {
	if tracer == nil {
		tracer = otel.Tracer("secprobe/probe")
	}
	ctx, span := tracer.Start(ctx, "probe "+p.Name,
		trace.WithAttributes(attribute.String("probe.name", p.Name)))
	defer func() {
		if r := recover(); r != nil {
			rec = NewRecord(p.Name, false, fmt.Sprintf("Error: probe aborted: %v", r))
			span.SetStatus(codes.Error, "panic")
		}
		span.SetAttributes(attribute.Bool("probe.vulnerable", rec.Success))
		span.End()
	}()

	vulnerable, details := p.Run(ctx)
	return NewRecord(p.Name, vulnerable, details)
}

// Notes appended to details when a verdict rests only on the status code.
const (
	Unconfirmed = "unconfirmed: status-code heuristic"
	Confirmed   = "confirmed"
)

// Qualify appends a confirmation note to a vulnerable verdict's details.
func Qualify(details string, confirmed bool, evidence string) string {
	if confirmed {
		if evidence != "" {
			return fmt.Sprintf("%s (%s: %s)", details, Confirmed, evidence)
		}
		return fmt.Sprintf("%s (%s)", details, Confirmed)
	}
	return fmt.Sprintf("%s (%s)", details, Unconfirmed)
}
