package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_RejectsInvalidArguments(t *testing.T) {
	s := GoroutineScheduler{}

	_, err := s.Schedule("job", 0, func(context.Context) bool { return true })
	require.Error(t, err)

	_, err = s.Schedule("job", -time.Second, func(context.Context) bool { return true })
	require.Error(t, err)

	_, err = s.Schedule("job", time.Second, nil)
	require.Error(t, err)
}

func TestSchedule_FirstCycleRunsImmediately(t *testing.T) {
	s := GoroutineScheduler{}
	ran := make(chan struct{})

	job, err := s.Schedule("job", time.Hour, func(context.Context) bool {
		close(ran)
		return true
	})
	require.NoError(t, err)
	defer job.Close()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}
}

func TestSchedule_RepeatsAtInterval(t *testing.T) {
	s := GoroutineScheduler{}
	var cycles int32
	done := make(chan struct{})

	job, err := s.Schedule("job", 2*time.Millisecond, func(context.Context) bool {
		if atomic.AddInt32(&cycles, 1) == 3 {
			close(done)
		}
		return true
	})
	require.NoError(t, err)
	defer job.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not repeat")
	}
}

func TestSchedule_FalseEndsJob(t *testing.T) {
	s := GoroutineScheduler{}
	var cycles int32

	job, err := s.Schedule("job", time.Millisecond, func(context.Context) bool {
		atomic.AddInt32(&cycles, 1)
		return false
	})
	require.NoError(t, err)

	// Close on an already-ended job returns once the goroutine is gone
	require.NoError(t, job.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&cycles))
}

func TestClose_CancelsAndAwaits(t *testing.T) {
	s := GoroutineScheduler{}
	started := make(chan struct{})
	var finished atomic.Bool

	job, err := s.Schedule("job", time.Hour, func(ctx context.Context) bool {
		close(started)
		<-ctx.Done()
		finished.Store(true)
		return true
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, job.Close())

	// Close must not return before the in-flight cycle observed the cancel
	assert.True(t, finished.Load())
}

func TestClose_Idempotent(t *testing.T) {
	s := GoroutineScheduler{}

	job, err := s.Schedule("job", time.Hour, func(context.Context) bool { return true })
	require.NoError(t, err)

	require.NoError(t, job.Close())
	require.NoError(t, job.Close())
}
