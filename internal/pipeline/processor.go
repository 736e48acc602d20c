// Package pipeline contains the per-source processing and run
// orchestration logic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newshub/internal/config"
	"newshub/internal/extract"
	"newshub/internal/fetcher"
	"newshub/internal/model"
	"newshub/internal/storage"
)

// Processor runs the fetch, extract and dedup steps for one source and
// builds its ProcessingSummary. One bad item never aborts the rest of a
// source's batch.
type Processor struct {
	fetcher *fetcher.Fetcher
	store   storage.Storage
	caps    config.Caps
	log     *slog.Logger
}

// NewProcessor creates a Processor. caps is the resolved article-cap
// configuration, constructed once at startup.
func NewProcessor(f *fetcher.Fetcher, store storage.Storage, caps config.Caps, log *slog.Logger) *Processor {
	return &Processor{
		fetcher: f,
		store:   store,
		caps:    caps,
		log:     log,
	}
}

// Process fetches one source and persists its new items. The returned
// summary is failed iff the fetch or the structural parse failed; item
// level failures only degrade it to partial_success.
func (p *Processor) Process(ctx context.Context, src model.Source) model.ProcessingSummary {
	summary := model.ProcessingSummary{
		SourceURL:  src.URL,
		SourceName: src.Name,
		Type:       src.Type,
	}

	body, err := p.fetcher.Fetch(ctx, src.URL, src.Type)
	if err != nil {
		p.log.Error("fetch source", "source", src.Name, "url", src.URL, "error", err)
		return failSummary(summary, err)
	}

	ex := extract.ForSource(src, p.caps.Selectors(src))
	items, err := ex.Extract(body)
	if err != nil {
		p.log.Error("extract source", "source", src.Name, "url", src.URL, "error", err)
		return failSummary(summary, err)
	}

	summary.ItemsFound = len(items)
	limit := p.caps.Resolve(src)
	if len(items) > limit {
		items = items[:limit]
	}
	summary.ItemsConsidered = len(items)

	for _, item := range items {
		p.processItem(ctx, src, item, &summary)
	}

	if len(summary.Errors) > 0 {
		summary.Status = model.StatusPartialSuccess
	} else {
		summary.Status = model.StatusSuccess
	}
	summary.Message = fmt.Sprintf("%d new, %d skipped of %d considered (%d found)",
		summary.NewItemsAdded, summary.ItemsSkipped, summary.ItemsConsidered, summary.ItemsFound)
	return summary
}

// processItem decides new-vs-existing for one candidate and persists it
// when new. Lookup order: GUID when present, then link.
func (p *Processor) processItem(ctx context.Context, src model.Source, item model.CandidateItem, summary *model.ProcessingSummary) {
	summary.ItemsProcessed++

	if item.Link == "" {
		summary.ItemsSkipped++
		summary.Errors = append(summary.Errors, model.ItemError{
			ItemTitle: item.Title,
			Message:   "missing link",
		})
		return
	}

	exists, err := p.itemExists(ctx, item)
	if err != nil {
		summary.ItemsSkipped++
		summary.Errors = append(summary.Errors, itemError(item, fmt.Sprintf("existence check: %v", err)))
		return
	}
	if exists {
		summary.ItemsSkipped++
		return
	}

	article := model.Article{
		Title:              item.Title,
		Link:               item.Link,
		GUID:               item.GUID,
		SourceName:         src.Name,
		PublishedDate:      item.PublishedDate,
		DescriptionSnippet: item.DescriptionSnippet,
	}
	if err := p.store.CreateArticle(ctx, &article); err != nil {
		summary.ItemsSkipped++
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost a race against a concurrent insert; the item is stored,
			// just not by us.
			summary.Errors = append(summary.Errors, itemError(item, "duplicate article"))
		} else {
			summary.Errors = append(summary.Errors, itemError(item, fmt.Sprintf("persist: %v", err)))
		}
		return
	}

	p.log.Debug("article added", "source", src.Name, "title", item.Title)
	summary.NewItemsAdded++
}

func (p *Processor) itemExists(ctx context.Context, item model.CandidateItem) (bool, error) {
	if item.GUID != "" {
		exists, err := p.store.ArticleExistsByGUID(ctx, item.GUID)
		if err != nil || exists {
			return exists, err
		}
	}
	return p.store.ArticleExistsByLink(ctx, item.Link)
}

func failSummary(summary model.ProcessingSummary, err error) model.ProcessingSummary {
	summary.Status = model.StatusFailed
	summary.FetchError = err.Error()
	summary.Message = "source could not be fetched"
	return summary
}

func itemError(item model.CandidateItem, msg string) model.ItemError {
	return model.ItemError{
		ItemTitle: item.Title,
		ItemLink:  item.Link,
		Message:   msg,
	}
}
