package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"urna/internal/services"
)

// StartSessionSweep deletes expired sessions on a fixed interval until the
// context is cancelled.
func StartSessionSweep(ctx context.Context, auth *services.AuthService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := auth.SweepExpired()
				if err != nil {
					log.Error("session sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("expired sessions removed", zap.Int64("count", removed))
				}
			}
		}
	}()
}
