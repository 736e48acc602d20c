// Package schedule triggers fetch runs and categorization sweeps on
// cron schedules.
package schedule

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"newshub/internal/categorize"
	"newshub/internal/model"
	"newshub/internal/pipeline"
)

// RunNotifier receives the result of a scheduled fetch run.
type RunNotifier interface {
	NotifyRun(run *model.FetchRun)
}

// Scheduler wires cron specs to the orchestrator and the categorization
// worker. Jobs run sequentially within themselves; overlapping triggers
// are a benign last-write-wins race on source bookkeeping.
type Scheduler struct {
	cron     *cron.Cron
	orch     *pipeline.Orchestrator
	worker   *categorize.Worker
	notifier RunNotifier
	log      *slog.Logger
}

// New creates a Scheduler. notifier may be nil.
func New(orch *pipeline.Orchestrator, worker *categorize.Worker, notifier RunNotifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		orch:     orch,
		worker:   worker,
		notifier: notifier,
		log:      log,
	}
}

// AddFetchJob schedules full fetch runs on the given cron spec.
func (s *Scheduler) AddFetchJob(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		run := s.orch.RunAll(ctx)
		if s.notifier != nil {
			s.notifier.NotifyRun(run)
		}
	})
	return err
}

// AddCategorizeJob schedules categorization sweeps on the given cron spec.
func (s *Scheduler) AddCategorizeJob(ctx context.Context, spec string, batchSize int) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.worker.ProcessPending(ctx, batchSize); err != nil {
			s.log.Error("scheduled categorization sweep", "error", err)
		}
	})
	return err
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
