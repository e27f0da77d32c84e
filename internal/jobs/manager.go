// Package jobs runs periodic maintenance of engine data on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// runTimeout bounds a single job run.
const runTimeout = 5 * time.Minute

// Job is one unit of scheduled work. Run reports how many rows it changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	metrics *metrics.JobMetrics
}

// NewJobManager creates a manager whose schedules include a seconds field.
func NewJobManager(logger zerolog.Logger, m *metrics.JobMetrics) *JobManager {
	return &JobManager{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With().Str("component", "jobs").Logger(),
		metrics: m,
	}
}

// Schedule registers job to run on spec. Overlapping runs of the same job
// are skipped.
func (jm *JobManager) Schedule(spec string, job Job) error {
	run := cron.FuncJob(func() { jm.runOnce(job) })
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(run)
	if _, err := jm.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name(), err)
	}
	jm.logger.Info().Str("job", job.Name()).Str("schedule", spec).Msg("job scheduled")
	return nil
}

// Start begins running scheduled jobs in the background.
func (jm *JobManager) Start() {
	jm.cron.Start()
	jm.logger.Info().Int("jobs", len(jm.cron.Entries())).Msg("job manager started")
}

// Stop prevents new runs and waits for running ones or ctx.
func (jm *JobManager) Stop(ctx context.Context) error {
	done := jm.cron.Stop()
	select {
	case <-done.Done():
		jm.logger.Info().Msg("job manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (jm *JobManager) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	affected, err := job.Run(ctx)
	elapsed := time.Since(start)

	jm.metrics.ObserveDuration(job.Name(), elapsed)
	jm.metrics.AddAffected(job.Name(), affected)
	if err != nil {
		jm.metrics.IncFailure(job.Name())
		jm.logger.Error().Err(err).
			Str("job", job.Name()).
			Int64("affected", affected).
			Dur("duration", elapsed).
			Msg("job failed")
		return
	}
	jm.metrics.IncSuccess(job.Name())
	jm.logger.Info().
		Str("job", job.Name()).
		Int64("affected", affected).
		Dur("duration", elapsed).
		Msg("job completed")
}
