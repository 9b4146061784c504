package reconciliation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job adapts the engine to the scheduler's Job interface.
type Job struct {
	engine  *Engine
	timeout time.Duration
	log     zerolog.Logger
}

// NewJob creates the recurring reconciliation job
func NewJob(engine *Engine, timeout time.Duration, log zerolog.Logger) *Job {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Job{
		engine:  engine,
		timeout: timeout,
		log:     log.With().Str("job", "reconcile_portfolios").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *Job) Name() string {
	return "reconcile_portfolios"
}

// Run reconciles every known portfolio within the job timeout.
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	return j.engine.ReconcileAll(ctx)
}
