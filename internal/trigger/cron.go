// Package trigger provides an in-process periodic invoker for the dispatch
// engine, for deployments without an external cron scheduler.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sungwon/heartpost/internal/dispatch"
)

// cycleRunner runs one dispatch cycle. Satisfied by *dispatch.Engine.
type cycleRunner interface {
	Run(ctx context.Context) (*dispatch.Report, error)
}

// Cron invokes the dispatch engine on a fixed schedule. Overlapping runs are
// tolerated; the store's conditional status updates keep them from
// double-processing a message.
type Cron struct {
	cron    *cron.Cron
	engine  cycleRunner
	timeout time.Duration
	log     zerolog.Logger
}

// New creates a Cron that runs the engine per the given cron expression.
// Each run is bounded by timeout.
func New(engine cycleRunner, schedule string, timeout time.Duration, log zerolog.Logger) (*Cron, error) {
	t := &Cron{
		cron:    cron.New(),
		engine:  engine,
		timeout: timeout,
		log:     log,
	}

	if _, err := t.cron.AddFunc(schedule, t.runCycle); err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", schedule, err)
	}

	return t, nil
}

// Start begins scheduling cycles in a background goroutine.
func (t *Cron) Start() {
	t.log.Info().Msg("in-process dispatch trigger started")
	t.cron.Start()
}

// Stop stops scheduling and waits for any in-flight cycle to finish.
func (t *Cron) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.log.Info().Msg("in-process dispatch trigger stopped")
}

func (t *Cron) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	report, err := t.engine.Run(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("scheduled dispatch cycle failed")
		return
	}

	t.log.Info().
		Int("total", report.Total).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("scheduled dispatch cycle completed")
}
