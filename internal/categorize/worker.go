package categorize

import (
	"context"
	"fmt"
	"log/slog"

	"newshub/internal/model"
	"newshub/internal/storage"
)

// Worker sweeps pending articles through the categorization client.
type Worker struct {
	store  storage.Storage
	client Client
	log    *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(store storage.Storage, client Client, log *slog.Logger) *Worker {
	return &Worker{
		store:  store,
		client: client,
		log:    log,
	}
}

// SweepResult summarizes one categorization sweep.
type SweepResult struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ProcessPending claims up to limit pending articles, marks each as
// processing and records the outcome. A failure on one article does not
// stop the sweep.
func (w *Worker) ProcessPending(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = 50
	}
	articles, err := w.store.ListPendingCategorization(ctx, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list pending articles: %w", err)
	}

	var res SweepResult
	for _, article := range articles {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Processed++
		if w.processOne(ctx, article) {
			res.Completed++
		} else {
			res.Failed++
		}
	}

	if res.Processed > 0 {
		w.log.Info("categorization sweep", "processed", res.Processed,
			"completed", res.Completed, "failed", res.Failed)
	}
	return res, nil
}

func (w *Worker) processOne(ctx context.Context, article model.Article) bool {
	if err := w.store.SetCategorizationStatus(ctx, article.ID, model.CategorizationProcessing); err != nil {
		w.log.Error("mark processing", "article_id", article.ID, "error", err)
		return false
	}

	result, err := w.client.Categorize(ctx, article)
	if err != nil {
		w.log.Error("categorize article", "article_id", article.ID, "error", err)
		if err := w.store.SetCategorizationStatus(ctx, article.ID, model.CategorizationFailed); err != nil {
			w.log.Error("mark failed", "article_id", article.ID, "error", err)
		}
		return false
	}

	if err := w.store.SaveCategorization(ctx, article.ID, result.NewsCategory, result.TechCategory); err != nil {
		w.log.Error("save categorization", "article_id", article.ID, "error", err)
		return false
	}
	return true
}
