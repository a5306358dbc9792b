// Package accesscontrol checks whether a regular user can reach admin-only
// endpoints, upload plugins or open the admin panel.
package accesscontrol

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/suite"
)

// SuiteName is the report key of this suite.
const SuiteName = "Admin Authorization"

// Config configures admin authorization testing
type Config struct {
	attackconfig.Base

	// Token is a regular user's bearer token. When empty the suite
	// registers a fresh account during setup.
	Token string

	// RequestGap spaces requests against admin endpoints (default: 500ms)
	RequestGap time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(target string) Config {
	return Config{
		Base:       attackconfig.DefaultBase(target),
		RequestGap: duration.AdminRequestGap,
	}
}

// Endpoint is a method and path pair.
type Endpoint struct {
	Method string
	Path   string
}

func (e Endpoint) String() string { return e.Method + " " + e.Path }

// SchemaEndpoints returns the admin schema operations a regular user tries.
func SchemaEndpoints(base string) []Endpoint {
	return []Endpoint{
		{http.MethodGet, base},
		{http.MethodGet, base + "/1"},
		{http.MethodDelete, base + "/1"},
	}
}

// Tester runs the admin authorization probes as a regular user.
type Tester struct {
	config Config
	token  string
	log    *zap.Logger
}

// New creates a tester.
func New(config Config) *Tester {
	config.Validate()
	if config.RequestGap < 0 {
		config.RequestGap = 0
	}
	return &Tester{config: config, log: config.Logger.Named("accesscontrol")}
}

// Suite returns the probe sequence with account setup.
func (t *Tester) Suite() *suite.Sequence {
	seq := t.config.Sequence(SuiteName,
		probe.New("Admin Schema Access", t.schemaAccess),
		probe.New("Plugin Upload Authorization", t.pluginUpload),
		probe.New("Admin Panel Access", t.panelAccess),
	)
	seq.Setup = t.setup
	return seq
}

func (t *Tester) setup(ctx context.Context) error {
	if t.config.Token != "" {
		t.token = t.config.Token
		return nil
	}
	acct := session.NewAccount("admin-test", "Admin Test User", t.config.RunTag)
	token, err := t.config.Session.CreateAccount(ctx, acct)
	if err != nil {
		return &suite.SetupError{Suite: SuiteName, Reason: "could not create test account", Err: err}
	}
	t.token = token
	return nil
}

func (t *Tester) schemaAccess(ctx context.Context) (bool, string) {
	var reached []string
	for i, ep := range SchemaEndpoints(t.config.Routes.AdminSchemas) {
		if i > 0 {
			if err := suite.Sleep(ctx, t.config.RequestGap); err != nil {
				break
			}
		}
		req := httpclient.NewRequest(ep.Method, t.config.URL(ep.Path)).SetBearer(t.token)
		req.Header.Set("Accept", defaults.ContentTypeJSON)
		out := t.config.Client.Do(ctx, req)
		if out.StatusIn(http.StatusOK, http.StatusCreated, http.StatusNoContent) {
			reached = append(reached, fmt.Sprintf("%s (%d)", ep, out.Status()))
		}
	}
	if len(reached) > 0 {
		return true, probe.Qualify(
			"Regular user can access admin endpoints! "+strings.Join(reached, ", "), false, "")
	}
	return false, "Admin endpoints properly protected"
}

// PluginArchive returns a minimal plugin zip containing plugin.json.
func PluginArchive() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("plugin.json")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write([]byte(`{"name":"test-plugin","version":"1.0.0"}`)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tester) pluginUpload(ctx context.Context) (bool, string) {
	archive, err := PluginArchive()
	if err != nil {
		return false, "Error: build plugin archive: " + err.Error()
	}
	req := httpclient.Multipart(t.config.URL(t.config.Routes.PluginUpload), httpclient.File{
		Field:       "plugin",
		Filename:    "test.zip",
		ContentType: defaults.ContentTypeZip,
		Content:     bytes.NewReader(archive),
	}).SetBearer(t.token)
	req.Timeout = duration.HTTPUpload

	out := t.config.Client.Do(ctx, req)
	if !out.OK() {
		return false, "Error: " + out.Error()
	}
	if out.StatusIn(http.StatusOK, http.StatusCreated) {
		return true, probe.Qualify("Regular user can upload plugins! (RCE possible)", false, "")
	}
	return false, "Plugin upload blocked for regular users"
}

func (t *Tester) panelAccess(ctx context.Context) (bool, string) {
	var reached []string
	for _, path := range t.config.Routes.AdminPages {
		req := httpclient.NewRequest(http.MethodGet, t.config.URL(path)).SetBearer(t.token)
		req.NoRedirect = true
		out := t.config.Client.Do(ctx, req)
		if out.Status() == http.StatusOK {
			reached = append(reached, path)
		}
	}
	if len(reached) > 0 {
		return true, "Regular user accessed admin panel! " + strings.Join(reached, ", ")
	}
	return false, "Admin panel properly protected"
}
