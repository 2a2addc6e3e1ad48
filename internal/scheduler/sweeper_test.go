package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
	block chan struct{}
}

func (f *fakeSweeper) SweepExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunOnce(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := &fakeSweeper{n: 3}
	s := NewResetTokenSweeper(f, "", testLogger())
	s.now = func() time.Time { return fixed }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, f.calls, 1)
	assert.Equal(t, fixed, f.calls[0])
}

func TestRunOnce_Error(t *testing.T) {
	boom := errors.New("db locked")
	s := NewResetTokenSweeper(&fakeSweeper{err: boom}, "", testLogger())

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunOnce_SkipsOverlap(t *testing.T) {
	f := &fakeSweeper{n: 1, block: make(chan struct{})}
	s := NewResetTokenSweeper(f, "", testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.isSweeping
	}, time.Second, 5*time.Millisecond)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	close(f.block)
	<-done
	assert.Len(t, f.calls, 1)
}

func TestStartStop(t *testing.T) {
	s := NewResetTokenSweeper(&fakeSweeper{}, "*/5 * * * *", testLogger())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second Start is a no-op")
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	s.Stop()
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewResetTokenSweeper(&fakeSweeper{}, "every tuesday", testLogger())
	assert.Error(t, s.Start())
}

func TestParseSchedule(t *testing.T) {
	_, err := ParseSchedule(DefaultSchedule)
	assert.NoError(t, err)

	_, err = ParseSchedule("0 0 * * * *")
	assert.Error(t, err, "six-field specs are rejected")
}
