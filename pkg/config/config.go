// Package config loads secprobe settings from flags, environment variables
// and an optional .env file through a single viper instance.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/session"
)

// Keys understood by NewViper. Each is also read from the upper-case
// environment variable of the same name (base_url -> BASE_URL).
const (
	KeyBaseURL         = "base_url"
	KeyEmail           = "test_email"
	KeyPassword        = "test_password"
	KeyAccountExisting = "account_existing"
	KeySessionCookies  = "session_cookies"
	KeyLaravelSession  = "laravel_session"
	KeyXSRFToken       = "xsrf_token"
	KeyAPIToken        = "api_token"
	KeyAdminToken      = "test_token"
	KeyOutputDir       = "output_dir"
	KeyLogDir          = "log_dir"
	KeyLogLevel        = "log_level"
	KeyVerbose         = "verbose"
	KeyPacing          = "pacing"
	KeySuiteGap        = "suite_gap"
	KeyNoColor         = "no_color"
	KeyMetricsFile     = "metrics_file"
	KeyOTLPEndpoint    = "otlp_endpoint"
	KeyOTLPInsecure    = "otlp_insecure"
	KeyRoutesFile      = "routes_file"
	KeyInsecure        = "insecure"
)

// Config holds all CLI configuration options
type Config struct {
	// Target settings
	BaseURL    string
	Email      string
	Password   string
	AdminToken string // Token for the admin authorization suite (TEST_TOKEN)

	// Existing browser or API session
	Session session.Source

	// Paths probed on the target
	Routes     Routes
	RoutesFile string

	// Execution settings
	Pacing   time.Duration // Delay between probes of a suite (default: 1s)
	SuiteGap time.Duration // Delay between suites (default: 2s)
	Insecure bool          // Skip TLS verification

	// Output settings
	OutputDir   string
	NoColor     bool
	MetricsFile string // Prometheus textfile written after a run (optional)

	// Logging
	LogDir   string
	LogLevel string
	Verbose  bool

	// Tracing
	OTLPEndpoint string
	OTLPInsecure bool
}

// NewViper returns a viper instance with defaults, environment binding and,
// when envFile exists, the contents of that dotenv file. An empty envFile
// means ".env" in the working directory.
func NewViper(envFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(KeyBaseURL, defaults.BaseURL)
	v.SetDefault(KeyOutputDir, defaults.OutputDir)
	v.SetDefault(KeyLogDir, defaults.LogDir)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyPacing, duration.ProbePacing)
	v.SetDefault(KeySuiteGap, duration.SuiteGap)
	v.AutomaticEnv()

	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err != nil {
		if explicit {
			return nil, fmt.Errorf("config: env file %s: %w", envFile, err)
		}
		return v, nil
	}

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, envFile, err)
	}
	return v, nil
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		Email:      v.GetString(KeyEmail),
		Password:   v.GetString(KeyPassword),
		AdminToken: v.GetString(KeyAdminToken),
		Session: session.Source{
			UseExisting:    v.GetBool(KeyAccountExisting),
			CookiesJSON:    v.GetString(KeySessionCookies),
			LaravelSession: v.GetString(KeyLaravelSession),
			XSRFToken:      v.GetString(KeyXSRFToken),
			APIToken:       v.GetString(KeyAPIToken),
		},
		RoutesFile:   v.GetString(KeyRoutesFile),
		Pacing:       v.GetDuration(KeyPacing),
		SuiteGap:     v.GetDuration(KeySuiteGap),
		Insecure:     v.GetBool(KeyInsecure),
		OutputDir:    v.GetString(KeyOutputDir),
		NoColor:      v.GetBool(KeyNoColor),
		MetricsFile:  v.GetString(KeyMetricsFile),
		LogDir:       v.GetString(KeyLogDir),
		LogLevel:     v.GetString(KeyLogLevel),
		Verbose:      v.GetBool(KeyVerbose),
		OTLPEndpoint: v.GetString(KeyOTLPEndpoint),
		OTLPInsecure: v.GetBool(KeyOTLPInsecure),
	}

	cfg.Routes = DefaultRoutes()
	if cfg.RoutesFile != "" {
		routes, err := LoadRoutes(cfg.RoutesFile)
		if err != nil {
			return cfg, err
		}
		cfg.Routes = routes
	}

	return cfg, cfg.Validate()
}

// Validate checks the target URL and durations.
func (c Config) Validate() error {
	var errs []error
	if err := ValidateTarget(c.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Pacing < 0 {
		errs = append(errs, fmt.Errorf("%w: pacing must not be negative", ErrInvalidConfig))
	}
	if c.SuiteGap < 0 {
		errs = append(errs, fmt.Errorf("%w: suite gap must not be negative", ErrInvalidConfig))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("%w: output dir is empty", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// ValidateTarget checks that target is an absolute http(s) URL.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTarget, target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q: want http(s)://host", ErrInvalidTarget, target)
	}
	return nil
}

// HasCredentials reports whether probes needing an account can run.
func (c Config) HasCredentials() bool {
	return c.Session.UseExisting || (c.Email != "" && c.Password != "")
}
