// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"newshub/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// ArticleFilter narrows ListArticles results.
type ArticleFilter struct {
	Page          int
	Limit         int
	IncludeHidden bool
	NewsCategory  string
	SourceName    string
}

// RunState holds the per-source bookkeeping fields written after every
// fetch attempt.
type RunState struct {
	FetchedAt time.Time
	Status    string
	Message   string
	Error     string
}

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateSource(ctx context.Context, src *model.Source) error
	GetSource(ctx context.Context, id int64) (*model.Source, error)
	ListSources(ctx context.Context) ([]model.Source, error)
	ListEnabledSources(ctx context.Context) ([]model.Source, error)
	UpdateSource(ctx context.Context, src *model.Source) error
	UpdateSourceRunState(ctx context.Context, id int64, state RunState) error
	DeleteSource(ctx context.Context, id int64) error

	CreateArticle(ctx context.Context, a *model.Article) error
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
	ArticleExistsByLink(ctx context.Context, link string) (bool, error)
	ArticleExistsByGUID(ctx context.Context, guid string) (bool, error)
	ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error)
	ListRecentArticles(ctx context.Context, limit int) ([]model.Article, error)
	SetArticleHidden(ctx context.Context, id int64, hidden bool) error
	SetArticleRead(ctx context.Context, id int64, read bool) error
	SetArticleStarred(ctx context.Context, id int64, starred bool) error
	DeleteArticle(ctx context.Context, id int64) error

	ListPendingCategorization(ctx context.Context, limit int) ([]model.Article, error)
	SetCategorizationStatus(ctx context.Context, id int64, status model.CategorizationStatus) error
	SaveCategorization(ctx context.Context, id int64, newsCategory, techCategory string) error

	CreateRun(ctx context.Context, run *model.FetchRun) error
	UpdateRun(ctx context.Context, run *model.FetchRun) error
	GetRun(ctx context.Context, id int64) (*model.FetchRun, error)
	ListRuns(ctx context.Context, page, limit int) ([]model.FetchRun, error)
	CountRuns(ctx context.Context) (int, error)

	Close() error
}
