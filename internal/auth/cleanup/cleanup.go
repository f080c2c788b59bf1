package cleanup

import (
	"context"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

// ExpiredTokenStore deletes refresh tokens whose expiry has passed.
type ExpiredTokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically removes expired refresh tokens. Expired tokens are
// already rejected at presentation; the sweep only keeps the table from
// growing without bound.
type Sweeper struct {
	store    ExpiredTokenStore
	clock    clock.Clock
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(store ExpiredTokenStore, clk clock.Clock, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{store: store, clock: clk, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. Start it in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		s.log.Errorf("refresh token sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
		s.log.WithFields(ctx, logger.Fields{"deleted": deleted}).Info("swept expired refresh tokens")
	}
}
