package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper scans for stale
// sessions.
const DefaultSweepInterval = time.Minute

// Sweeper periodically evicts stale sessions from a registry. Start it
// once at process startup and cancel its context on shutdown.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	// OnEvict, when set before Start, is called with the eviction count
	// after every sweep that removed at least one session.
	OnEvict func(n int)

	done chan struct{}
}

// NewSweeper returns a sweeper for r. interval <= 0 uses
// DefaultSweepInterval, maxAge <= 0 uses DefaultMaxAge.
func NewSweeper(r *Registry, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		registry: r,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Done is closed once the sweep loop has exited.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.CleanupStale(s.maxAge); n > 0 {
				s.logger.Info("stale session sweep",
					"evicted", n,
					"active", s.registry.Count(),
				)
				if s.OnEvict != nil {
					s.OnEvict(n)
				}
			}
		}
	}
}
