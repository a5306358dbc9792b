package suite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcMarius/secprobe/pkg/probe"
)

func fixed(name string, vuln bool) probe.Probe {
	return probe.New(name, func(context.Context) (bool, string) {
		return vuln, name + " details"
	})
}

func TestSequence_RunsInOrder(t *testing.T) {
	t.Parallel()
	var seen []string
	s := &Sequence{
		Title:    "Configuration Security",
		Probes:   []probe.Probe{fixed("a", false), fixed("b", true), fixed("c", false)},
		OnRecord: func(r probe.Record) { seen = append(seen, r.Test) },
	}

	records, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.True(t, records[1].Success)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Timestamp.Before(records[i-1].Timestamp))
	}
}

func TestSequence_Pacing(t *testing.T) {
	t.Parallel()
	s := &Sequence{
		Title:  "paced",
		Pacing: 20 * time.Millisecond,
		Probes: []probe.Probe{fixed("a", false), fixed("b", false), fixed("c", false)},
	}
	start := time.Now()
	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSequence_SetupFailure(t *testing.T) {
	t.Parallel()
	called := false
	s := &Sequence{
		Title: "Admin Authorization",
		Setup: func(context.Context) error { return errors.New("register returned 422") },
		Probes: []probe.Probe{probe.New("x", func(context.Context) (bool, string) {
			called = true
			return false, ""
		})},
	}

	records, err := s.Run(context.Background())
	assert.Empty(t, records)
	assert.True(t, IsSetup(err))
	assert.False(t, called)
	assert.Contains(t, err.Error(), "Admin Authorization: setup failed")
}

func TestSequence_CancelledMidway(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequence{
		Title:  "cancel",
		Pacing: time.Hour,
		Probes: []probe.Probe{
			fixed("first", true),
			fixed("second", false),
		},
		OnRecord: func(probe.Record) { cancel() },
	}

	records, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Test)
}

func TestSequence_InterruptedProbeContributesNothing(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	var seen []probe.Record
	s := &Sequence{
		Title: "cancel",
		Probes: []probe.Probe{
			fixed("first", true),
			probe.New("second", func(context.Context) (bool, string) {
				cancel()
				return false, "Rate limiting active: 0/50 blocked"
			}),
			fixed("third", true),
		},
		OnRecord: func(r probe.Record) { seen = append(seen, r) },
	}

	records, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Test)
	assert.Len(t, seen, 1, "interrupted record is not announced")
}

func TestSleep_ZeroDuration(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
}
