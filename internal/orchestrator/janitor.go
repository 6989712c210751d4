package orchestrator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// timeNow is swapped in tests
var timeNow = time.Now

// Janitor runs the reconciler on a cron schedule
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules the periodic convergence sweep. An empty schedule
// disables it.
func (o *Orchestrator) StartJanitor(schedule string) (*Janitor, error) {
	if schedule == "" {
		o.logger.Info().Msg("Janitor disabled, no schedule configured")
		return &Janitor{}, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := o.Reconcile(ctx); err != nil {
			o.logger.Warn().Err(err).Msg("Janitor sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	o.logger.Info().Str("schedule", schedule).Msg("Janitor started")
	return &Janitor{cron: c}, nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	if j.cron != nil {
		ctx := j.cron.Stop()
		<-ctx.Done()
	}
}
