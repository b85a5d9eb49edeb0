package drain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
)

// Runner schedules drains: one on every offline-to-online transition, plus
// a periodic fallback so messages re-queued after a transient failure are
// not stuck waiting for the next reconnect.
type Runner struct {
	drainer  *Drainer
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
}

// NewRunner creates a runner. interval <= 0 disables the periodic fallback.
func NewRunner(d *Drainer, b *bus.Bus, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		drainer:  d,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start subscribes to connectivity events and begins the fallback ticker.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("net.", 16)

	go func() {
		defer unsub()

		var tick <-chan time.Time
		if r.interval > 0 {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case evt := <-ch:
				if evt.Kind == bus.KindNetOnline {
					r.logger.Info("connectivity restored, draining queue")
					r.drainer.Drain(ctx)
				}
			case <-tick:
				r.drainer.Drain(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the runner. A drain already in flight runs to completion.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}
