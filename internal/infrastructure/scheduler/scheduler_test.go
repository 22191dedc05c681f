package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Register(t *testing.T) {
	s := New(DefaultConfig(), nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register(Job{Name: "a", Interval: time.Second, Run: noop}))
	assert.ErrorIs(t, s.Register(Job{Name: "a", Interval: time.Second, Run: noop}), ErrDuplicateJob)
	assert.ErrorIs(t, s.Register(Job{Name: "", Interval: time.Second, Run: noop}), ErrInvalidJob)
	assert.ErrorIs(t, s.Register(Job{Name: "b", Interval: 0, Run: noop}), ErrInvalidJob)
	assert.ErrorIs(t, s.Register(Job{Name: "c", Interval: time.Second}), ErrInvalidJob)

	s.Start(context.Background())
	defer func() { _ = s.Stop(context.Background()) }()
	assert.ErrorIs(t, s.Register(Job{Name: "d", Interval: time.Second, Run: noop}), ErrSchedulerRunning)
}

func TestScheduler_Trigger(t *testing.T) {
	s := New(Config{}, nil)
	fail := true
	require.NoError(t, s.Register(Job{Name: "flaky", Interval: time.Hour, Run: func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}}))

	err := s.Trigger(context.Background(), "flaky")
	require.Error(t, err)
	state := s.States()[0]
	assert.Equal(t, JobStatusFailed, state.Status)
	assert.Equal(t, "boom", state.LastError)
	assert.Equal(t, 1, state.Failures)

	fail = false
	require.NoError(t, s.Trigger(context.Background(), "flaky"))
	state = s.States()[0]
	assert.Equal(t, JobStatusSuccess, state.Status)
	assert.Empty(t, state.LastError)
	assert.Equal(t, 2, state.Runs)
	assert.NotNil(t, state.LastEnded)

	assert.ErrorIs(t, s.Trigger(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(Config{}, nil)
	require.NoError(t, s.Register(Job{Name: "panicky", Interval: time.Hour, Run: func(context.Context) error {
		panic("nil map")
	}}))

	err := s.Trigger(context.Background(), "panicky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, JobStatusFailed, s.States()[0].Status)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := New(Config{JobTimeout: 10 * time.Millisecond}, nil)
	require.NoError(t, s.Register(Job{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	err := s.Trigger(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(Config{RunOnStart: true}, nil)
	var runs atomic.Int32
	require.NoError(t, s.Register(Job{Name: "tick", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}))

	s.Start(context.Background())
	s.Start(context.Background())
	ok := testutil.WaitForCondition(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	require.True(t, ok, "job should run repeatedly")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
	require.NoError(t, s.Stop(ctx))
}
