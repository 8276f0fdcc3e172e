package update

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	minInterval = 30 * time.Second
	maxInterval = 24 * time.Hour
)

// Runner triggers update cycles on a fixed interval. Scheduled cycles are
// quiet: their summary is logged, not messaged; only the reminders
// themselves reach the recipient. A tick that lands while a cycle is still
// running is skipped.
type Runner struct {
	orch     *Orchestrator
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewRunner(orch *Orchestrator, interval time.Duration) *Runner {
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}
	return &Runner{
		orch:     orch,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *Runner) Interval() time.Duration {
	return r.interval
}

func (r *Runner) Start() {
	go r.loop()
	zap.L().Info("Update runner started", zap.Duration("interval", r.interval))
}

// Stop waits for an in-flight cycle to finish before returning.
func (r *Runner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Runner) loop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			summary, err := r.orch.RunCycle(context.Background())
			switch {
			case errors.Is(err, ErrCycleInProgress):
				zap.L().Warn("Skipping scheduled cycle, previous one still running")
			case err != nil:
				zap.L().Error("Scheduled update cycle failed", zap.Error(err))
			default:
				zap.L().Info("Scheduled update cycle finished", zap.String("summary", summary.String()))
			}
		}
	}
}
