package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newshub/internal/model"
	"newshub/internal/storage"
)

// Orchestrator drives a full fetch run: it iterates enabled sources
// strictly sequentially, aggregates their summaries into a FetchRun and
// keeps per-source bookkeeping up to date.
type Orchestrator struct {
	store storage.Storage
	proc  *Processor
	log   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store storage.Storage, proc *Processor, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store: store,
		proc:  proc,
		log:   log,
	}
}

// RunAll executes one orchestration run over all enabled sources. It
// always returns an in-memory run record, even when the run failed; the
// record is only missing from the store when the initial persist failed.
func (o *Orchestrator) RunAll(ctx context.Context) *model.FetchRun {
	run, ok := o.start(ctx)
	if !ok {
		return run
	}

	defer o.finalize(ctx, run)

	sources, err := o.store.ListEnabledSources(ctx)
	if err != nil {
		o.addError(run, fmt.Sprintf("list enabled sources: %v", err))
		return run
	}
	if len(sources) == 0 {
		// Vacuously successful, not an error.
		run.OrchestrationErrors = append(run.OrchestrationErrors, "no enabled sources")
		return run
	}

	for _, src := range sources {
		o.runSource(ctx, run, src)
	}
	return run
}

// RunSource executes a single-source run, recorded in the run history
// like any full run. Returns the source's summary alongside the run.
func (o *Orchestrator) RunSource(ctx context.Context, id int64) (*model.FetchRun, *model.ProcessingSummary, error) {
	src, err := o.store.GetSource(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load source: %w", err)
	}

	run, ok := o.start(ctx)
	if !ok {
		return run, nil, fmt.Errorf("create run log: %s", run.OrchestrationErrors[0])
	}

	defer o.finalize(ctx, run)

	o.runSource(ctx, run, *src)
	return run, &run.SourceSummaries[0], nil
}

// start creates the in-progress run record. Fetching is not allowed to
// proceed without the audit trail, so a failed initial persist aborts
// the whole run.
func (o *Orchestrator) start(ctx context.Context) (*model.FetchRun, bool) {
	run := &model.FetchRun{
		StartTime: time.Now().UTC().Truncate(time.Second),
		Status:    model.RunInProgress,
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		o.log.Error("create run log", "error", err)
		now := time.Now().UTC().Truncate(time.Second)
		run.EndTime = &now
		run.Status = model.RunFailed
		run.OrchestrationErrors = append(run.OrchestrationErrors, fmt.Sprintf("create run log: %v", err))
		return run, false
	}
	o.log.Info("run started", "run_id", run.ID)
	return run, true
}

func (o *Orchestrator) runSource(ctx context.Context, run *model.FetchRun, src model.Source) {
	summary := o.proc.Process(ctx, src)

	run.SourceSummaries = append(run.SourceSummaries, summary)
	run.SourcesAttempted++
	if summary.FetchError != "" {
		run.SourcesFailed++
	} else {
		run.SourcesSucceeded++
	}
	run.NewArticlesAdded += summary.NewItemsAdded

	state := storage.RunState{
		FetchedAt: time.Now().UTC(),
		Status:    string(summary.Status),
		Message:   summary.Message,
		Error:     summary.FetchError,
	}
	if err := o.store.UpdateSourceRunState(ctx, src.ID, state); err != nil {
		// Bookkeeping failure for one source must not stop the others.
		o.addError(run, fmt.Sprintf("update source %d run state: %v", src.ID, err))
	}
}

// finalize computes the overall status and writes the run record back,
// even when the loop panicked. A failed final write forces the reported
// status to failed: the result must not claim a record that was never
// stored, even though ingestion already happened.
func (o *Orchestrator) finalize(ctx context.Context, run *model.FetchRun) {
	if r := recover(); r != nil {
		o.addError(run, fmt.Sprintf("orchestration panic: %v", r))
		run.Status = model.RunFailed
	} else if len(run.OrchestrationErrors) == 0 && run.SourcesFailed == 0 {
		run.Status = model.RunCompleted
	} else if onlyNote(run.OrchestrationErrors) && run.SourcesFailed == 0 {
		run.Status = model.RunCompleted
	} else {
		run.Status = model.RunCompletedWithErrors
	}

	now := time.Now().UTC().Truncate(time.Second)
	run.EndTime = &now

	if err := o.store.UpdateRun(ctx, run); err != nil {
		o.log.Error("persist final run state", "run_id", run.ID, "error", err)
		run.OrchestrationErrors = append(run.OrchestrationErrors, fmt.Sprintf("persist final run state: %v", err))
		run.Status = model.RunFailed
		return
	}

	o.log.Info("run finished", "run_id", run.ID, "status", run.Status,
		"sources", run.SourcesAttempted, "new_articles", run.NewArticlesAdded)
}

func (o *Orchestrator) addError(run *model.FetchRun, msg string) {
	o.log.Error(msg, "run_id", run.ID)
	run.OrchestrationErrors = append(run.OrchestrationErrors, msg)
}

// onlyNote reports whether the recorded orchestration entries are just
// the empty-sources note rather than real failures.
func onlyNote(errs []string) bool {
	return len(errs) == 1 && errs[0] == "no enabled sources"
}
