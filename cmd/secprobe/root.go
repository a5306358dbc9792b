package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/EcMarius/secprobe/internal/logging"
	"github.com/EcMarius/secprobe/pkg/config"
	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
	"github.com/EcMarius/secprobe/pkg/output/exitcode"
)

// skipConfig marks commands that run without loading settings.
const skipConfig = "skip-config"

// app carries what the commands share once the root has loaded settings.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	envFile string
	v       *viper.Viper
	cfg     config.Config
	log     *zap.Logger
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"output-dir":    config.KeyOutputDir,
	"log-dir":       config.KeyLogDir,
	"log-level":     config.KeyLogLevel,
	"verbose":       config.KeyVerbose,
	"no-color":      config.KeyNoColor,
	"pacing":        config.KeyPacing,
	"suite-gap":     config.KeySuiteGap,
	"insecure":      config.KeyInsecure,
	"metrics-file":  config.KeyMetricsFile,
	"otlp-endpoint": config.KeyOTLPEndpoint,
	"otlp-insecure": config.KeyOTLPInsecure,
	"routes-file":   config.KeyRoutesFile,
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   defaults.ToolName,
		Short: "Black-box security probes for web applications",
		Long: `secprobe sends crafted HTTP requests to a web application and reports
which checks found a vulnerability: mass assignment, rate limiting, admin
authorization, file upload, business logic and configuration security.

Settings come from flags, environment variables and a .env file, in that
order of precedence. Only run it against systems you are authorized to test.`,
		Version:       defaults.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.load(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", "", "Dotenv file to read (default: .env if present)")
	pf.String("output-dir", defaults.OutputDir, "Directory for result files")
	pf.String("log-dir", defaults.LogDir, "Directory for the rotating JSON log")
	pf.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	pf.BoolP("verbose", "v", false, "Also write logs to stderr")
	pf.Bool("no-color", false, "Disable coloured output")
	pf.Duration("pacing", duration.ProbePacing, "Delay between probes of a suite")
	pf.Duration("suite-gap", duration.SuiteGap, "Delay between suites")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.String("metrics-file", "", "Write Prometheus metrics to this textfile after a run")
	pf.String("otlp-endpoint", "", "Export traces to this OTLP gRPC endpoint")
	pf.Bool("otlp-insecure", false, "Use plaintext for the OTLP endpoint")
	pf.String("routes-file", "", "YAML file overriding probed routes")

	root.AddCommand(
		newRunCmd(a),
		newSuiteCmd(a),
		newListCmd(a),
		newResultsCmd(a),
		newSessionCmd(a),
		newVersionCmd(a),
	)
	return root
}

// load builds the settings store from the env file and the flags.
func (a *app) load(flags *pflag.FlagSet) error {
	v, err := config.NewViper(a.envFile)
	if err != nil {
		return exitcode.WithCode(exitcode.Failure, err)
	}
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return exitcode.WithCode(exitcode.Failure, fmt.Errorf("bind --%s: %w", name, err))
			}
		}
	}
	a.v = v
	return nil
}

// configure applies an optional positional BASE_URL, validates the
// settings and starts logging.
func (a *app) configure(baseURL string) error {
	if baseURL != "" {
		a.v.Set(config.KeyBaseURL, baseURL)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return exitcode.WithCode(exitcode.Failure, err)
	}
	a.cfg = cfg

	log, err := logging.New(logging.Options{
		Dir:           cfg.LogDir,
		Level:         cfg.LogLevel,
		Console:       cfg.Verbose,
		ConsoleWriter: a.stderr,
	})
	if err != nil {
		return exitcode.WithCode(exitcode.Failure, err)
	}
	a.log = log
	return nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
