// Package startup holds boot-time tasks that run once before the server
// begins accepting traffic.
package startup

import (
	"context"
	"log/slog"
)

// Sweeper reconciles persisted session state against the OS process table.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RecoverStaleSessions runs one reconciliation pass at boot. Sessions left
// marked running by an unclean shutdown are repaired before the periodic
// sweep takes over; broadcasts whose process survived the restart keep
// running untouched.
func RecoverStaleSessions(ctx context.Context, sweeper Sweeper, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	reconciled, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("startup reconciliation failed", slog.Any("error", err))
		return err
	}

	if reconciled > 0 {
		logger.Info("startup reconciliation repaired stale sessions",
			slog.Int("reconciled", reconciled),
		)
	} else {
		logger.Debug("startup reconciliation found no stale sessions")
	}
	return nil
}
