package intervalsweeper

import (
	"context"
	"time"

	expiringmap "github.com/karupanerura/expiring-map"
	"github.com/karupanerura/expiring-map/internal/panicutil"
)

// IntervalSweeper is a background sweeper that cleans up a map at a fixed interval.
// It bounds how long expired entries stay in memory while nobody touches the map.
type IntervalSweeper struct {
	target            expiringmap.Cleaner
	interval          time.Duration
	onBackgroundError func(error)
}

// NewIntervalSweeper creates a new IntervalSweeper.
// A panic raised during a cleanup is recovered and passed to onBackgroundError
// as a *panics.ErrRecovered, and the sweeper keeps running.
func NewIntervalSweeper(target expiringmap.Cleaner, interval time.Duration, onBackgroundError func(error)) *IntervalSweeper {
	if interval <= 0 {
		panic("interval must be positive")
	}
	return &IntervalSweeper{
		target:            target,
		interval:          interval,
		onBackgroundError: onBackgroundError,
	}
}

// LaunchBackgroundSweeper starts the background sweeper.
// The background sweeper can be stopped by canceling the context passed to LaunchBackgroundSweeper.
func (s *IntervalSweeper) LaunchBackgroundSweeper(ctx context.Context) {
	go s.poll(ctx)
}

func (s *IntervalSweeper) poll(ctx context.Context) {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *IntervalSweeper) sweep() {
	panicutil.Report(func() { s.target.Cleanup() }, s.onBackgroundError)
}
