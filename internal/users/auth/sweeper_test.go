// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/folio/internal/users/auth"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (sweeper *countingSweeper) SweepExpiredSessions(context.Context) (int64, error) {
	sweeper.calls.Add(1)
	return 1, sweeper.err
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

/*
TestSweeper_RunsUntilCancelled sweeps at start and on every tick.
*/
func TestSweeper_RunsUntilCancelled(t *testing.T) {
	sessions := &countingSweeper{}
	sweeper := auth.NewSweeper(sessions, 10*time.Millisecond, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sessions.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

/*
TestSweeper_Disabled returns immediately for a non-positive interval.
*/
func TestSweeper_Disabled(t *testing.T) {
	sessions := &countingSweeper{}
	auth.NewSweeper(sessions, 0, discardLogger).Run(context.Background())

	assert.Zero(t, sessions.calls.Load())
}

/*
TestSweeper_SurvivesErrors keeps ticking after a failed sweep.
*/
func TestSweeper_SurvivesErrors(t *testing.T) {
	sessions := &countingSweeper{err: errStoreDown}
	sweeper := auth.NewSweeper(sessions, 5*time.Millisecond, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	assert.Eventually(t, func() bool { return sessions.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
