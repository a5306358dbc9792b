package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcMarius/secprobe/pkg/httpclient"
	"github.com/EcMarius/secprobe/pkg/output/exitcode"
	"github.com/EcMarius/secprobe/pkg/session"
	"github.com/EcMarius/secprobe/pkg/ui"
)

func newSessionCmd(a *app) *cobra.Command {
	var setup, check bool
	cmd := &cobra.Command{
		Use:   "session [BASE_URL]",
		Short: "Show the configured session or how to set one up",
		Long: `Show whether probes log in with TEST_EMAIL/TEST_PASSWORD or reuse an
existing browser or API session (ACCOUNT_EXISTING=true), and what session
material was loaded. JWT bearer tokens are decoded without verification to
show their subject and expiry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if setup {
				fmt.Fprint(a.stdout, session.Instructions)
				return nil
			}
			if err := a.configure(argAt(args, 0)); err != nil {
				return err
			}

			hc := httpclient.DefaultConfig()
			hc.InsecureSkipVerify = a.cfg.Insecure
			hc.Logger = a.log
			mgr, err := session.NewManager(session.Options{
				Target:       a.cfg.BaseURL,
				LoginPath:    a.cfg.Routes.Login,
				RegisterPath: a.cfg.Routes.Register,
				Source:       a.cfg.Session,
				Client:       httpclient.New(hc),
				Logger:       a.log,
			})
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, err)
			}

			console := ui.NewConsole(a.stdout, a.cfg.NoColor)
			console.Infof("Target:  %s", a.cfg.BaseURL)
			console.Session(mgr.Info())
			if !check {
				return nil
			}

			cred, err := mgr.Acquire(cmd.Context(), a.cfg.Email, a.cfg.Password)
			if err != nil {
				return exitcode.WithCode(exitcode.Failure, fmt.Errorf("session check: %w", err))
			}
			console.Infof("Check:   %s", cred.Note)
			return nil
		},
	}
	cmd.Flags().BoolVar(&setup, "setup", false, "Print instructions for using an existing browser session")
	cmd.Flags().BoolVar(&check, "check", false, "Acquire a credential against the target")
	return cmd
}
