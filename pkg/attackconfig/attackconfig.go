package attackconfig

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/config"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// Base contains configuration fields shared across all suite packages.
// Embed it in package-specific Config structs to inherit common
// functionality.
type Base struct {
	Target   string
	Client   *httpclient.Client
	Session  *session.Manager
	Routes   config.Routes
	Email    string
	Password string

	// RunTag is appended to accounts created on the target so they can be
	// traced back to the run that made them.
	RunTag string

	// Pacing is the delay between two probes of the suite.
	Pacing time.Duration

	Logger *zap.Logger
	Tracer trace.Tracer

	// OnRecord is called as each probe finishes, enabling live console
	// output in the CLI.
	OnRecord func(probe.Record)
}

// DefaultBase returns a Base with production defaults.
func DefaultBase(target string) Base {
	return Base{
		Target: target,
		Routes: config.DefaultRoutes(),
		Pacing: duration.ProbePacing,
	}
}

// Validate fills zero-value fields with defaults.
// Call this in New constructors to ensure sane values.
func (b *Base) Validate() {
	if b.Client == nil {
		b.Client = httpclient.New(httpclient.DefaultConfig())
	}
	if b.Logger == nil {
		b.Logger = zap.NewNop()
	}
	if b.Routes.Login == "" {
		b.Routes = config.DefaultRoutes()
	}
	if b.Pacing < 0 {
		b.Pacing = 0
	}
	if b.Session == nil {
		m, err := session.NewManager(session.Options{
			Target:       b.Target,
			LoginPath:    b.Routes.Login,
			RegisterPath: b.Routes.Register,
			Client:       b.Client,
			Logger:       b.Logger,
		})
		if err != nil {
			b.Logger.Warn("session manager unavailable", zap.Error(err))
			return
		}
		b.Session = m
	}
}

// URL joins a route onto the target.
func (b *Base) URL(path string) string {
	return config.Join(b.Target, path)
}

// HasCredentials reports whether probes requiring an account can run.
func (b *Base) HasCredentials() bool {
	if b.Session != nil && b.Session.Existing() {
		return true
	}
	return b.Email != "" && b.Password != ""
}

// Sequence wraps probes in a suite carrying the shared settings.
func (b *Base) Sequence(title string, probes ...probe.Probe) *suite.Sequence {
	return &suite.Sequence{
		Title:    title,
		Pacing:   b.Pacing,
		Probes:   probes,
		Logger:   b.Logger,
		Tracer:   b.Tracer,
		OnRecord: b.OnRecord,
	}
}
