// Package schedule triggers periodic full workflow runs.
package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunFunc executes one full workflow run.
type RunFunc func(ctx context.Context) error

// Runner fires a RunFunc at a fixed interval until the context is
// cancelled. Run failures are logged and the ticker keeps going.
type Runner struct {
	interval time.Duration
	fn       RunFunc
	logger   zerolog.Logger
}

// NewRunner creates a Runner. interval must be positive.
func NewRunner(interval time.Duration, fn RunFunc, logger zerolog.Logger) *Runner {
	return &Runner{
		interval: interval,
		fn:       fn,
		logger:   logger.With().Str("component", "schedule").Logger(),
	}
}

// Run blocks, firing the run function on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			if err := r.fn(ctx); err != nil {
				r.logger.Error().Err(err).Msg("scheduled run failed")
			}
		}
	}
}
