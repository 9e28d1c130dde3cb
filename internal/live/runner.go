package live

import (
	"context"
	"time"
)

// Runner drives a Machine from a fixed-interval ticker.
type Runner struct {
	machine  *Machine
	interval time.Duration
	log      func(format string, args ...any)
}

// NewRunner creates a runner polling at the given interval.
func NewRunner(machine *Machine, interval time.Duration, logger func(format string, args ...any)) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = func(format string, args ...any) {}
	}
	return &Runner{machine: machine, interval: interval, log: logger}
}

// Run ticks the machine until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	prev := r.machine.State()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := r.machine.Tick(ctx)
			if next != prev {
				r.log("live: %s -> %s (mode %s)", prev, next, r.machine.Mode())
				prev = next
			}
		}
	}
}
