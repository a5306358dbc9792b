package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSignalContext_CancelOnInterrupt(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var out syncBuffer
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, &out, sigChan, nil)
	defer cancel()

	sigChan <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
	assert.ErrorIs(t, context.Cause(ctx), ErrInterrupted)
	assert.Contains(t, out.String(), "Interrupt received")
}

func TestSignalContext_ManualCancel(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan, nil)

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after manual cancel")
	}
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	ctx, cancel := signalContextWithNotifier(parent, 5*time.Second, nil, make(chan os.Signal, 1), nil)
	defer cancel()

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context did not follow its parent")
	}
}

func TestSignalContext_SecondSignalExits(t *testing.T) {
	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	ctx, cancel := signalContextWithNotifier(context.Background(), 5*time.Second, nil, sigChan,
		func(code int) { exitCode.Store(int32(code)) })
	defer cancel()

	sigChan <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after first signal")
	}

	sigChan <- os.Interrupt
	require.Eventually(t, func() bool {
		return exitCode.Load() == InterruptExitCode
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignalContext_GraceExpires(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	var exitCalled atomic.Bool

	_, cancel := signalContextWithNotifier(context.Background(), 50*time.Millisecond, nil, sigChan,
		func(int) { exitCalled.Store(true) })
	defer cancel()

	sigChan <- os.Interrupt
	time.Sleep(200 * time.Millisecond)

	assert.False(t, exitCalled.Load(), "one signal must not exit")
}
