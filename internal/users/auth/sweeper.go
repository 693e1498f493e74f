// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper is the maintenance capability of [Service].
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// Sweeper periodically purges expired session rows.
type Sweeper struct {
	sessions SessionSweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(sessions SessionSweeper, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// A non-positive interval disables the sweeper and Run returns at once.
func (sweeper *Sweeper) Run(ctx context.Context) {
	if sweeper.interval <= 0 {
		sweeper.logger.Info("session_sweeper_disabled")
		return
	}

	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	sweeper.logger.Info("session_sweeper_started", slog.Duration("interval", sweeper.interval))

	for {
		sweeper.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			sweeper.logger.Info("session_sweeper_stopped")
			return
		case <-ticker.C:
		}
	}
}

func (sweeper *Sweeper) sweepOnce(ctx context.Context) {
	deleted, err := sweeper.sessions.SweepExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sweeper.logger.Error("session_sweep_failed", slog.Any("error", err))
		}
		return
	}

	sweeper.logger.Info("session_sweep_completed", slog.Int64(FieldDeleted, deleted))
}
