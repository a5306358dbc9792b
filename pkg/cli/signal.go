// Package cli holds the terminal plumbing shared by the secprobe commands:
// interrupt handling and the confirmation prompt.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ErrInterrupted is the cancellation cause of a context stopped by SIGINT
// or SIGTERM.
var ErrInterrupted = errors.New("interrupted by signal")

// InterruptExitCode is used when a second signal forces an immediate exit.
const InterruptExitCode = 130

// SignalContext returns a child of parent cancelled with ErrInterrupted on
// SIGINT/SIGTERM. The notice is written to w. If a second signal arrives
// during gracePeriod the process exits at once.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(context.Background(), duration.SignalGrace, os.Stderr)
//	defer cancel()
func SignalContext(parent context.Context, gracePeriod time.Duration, w io.Writer) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(parent, gracePeriod, w, nil, nil)
}

// signalContextWithNotifier is the internal implementation for testing.
// sigChan, if non-nil, overrides the real signal channel.
// exitFn, if non-nil, overrides os.Exit for testing.
func signalContextWithNotifier(
	parent context.Context,
	gracePeriod time.Duration,
	w io.Writer,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}
	if w == nil {
		w = io.Discard
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Interrupt received, finishing the current probe and writing results...")
			cancel(ErrInterrupted)

			select {
			case <-sigChan:
				fmt.Fprintln(w, "Second interrupt, exiting without a report.")
				exitFn(InterruptExitCode)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}
