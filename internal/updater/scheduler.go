package updater

import (
	"context"
	"time"
)

// Scheduler runs periodic background checks through the coordinator.
type Scheduler struct {
	coord        *Coordinator
	initialDelay time.Duration
	interval     time.Duration
}

// NewScheduler creates a scheduler. initialDelay postpones the first check
// after startup so it does not compete with application launch.
func NewScheduler(coord *Coordinator, initialDelay, interval time.Duration) *Scheduler {
	return &Scheduler{
		coord:        coord,
		initialDelay: initialDelay,
		interval:     interval,
	}
}

// Run blocks until ctx is cancelled, dispatching a background check after the
// initial delay and then once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	select {
	case <-time.After(s.initialDelay):
	case <-ctx.Done():
		return
	}

	s.coord.CheckForUpdates(ctx, true)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.coord.CheckForUpdates(ctx, true)
		case <-ctx.Done():
			return
		}
	}
}
