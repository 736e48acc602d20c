// Package model defines the domain types used across the application.
package model

import "time"

// SourceType defines how a source is fetched and parsed.
type SourceType string

// Supported source types.
const (
	TypeRSS  SourceType = "rss"
	TypeHTML SourceType = "html"
)

// CategorizationStatus tracks the AI enrichment lifecycle of an article.
type CategorizationStatus string

// Supported categorization statuses.
const (
	CategorizationPending    CategorizationStatus = "pending"
	CategorizationProcessing CategorizationStatus = "processing"
	CategorizationCompleted  CategorizationStatus = "completed"
	CategorizationFailed     CategorizationStatus = "failed"
)

// Article represents a deduplicated news item. Identity is the link,
// or the feed GUID when the source provides one.
type Article struct {
	ID                   int64                `json:"id"`
	Title                string               `json:"title"`
	Link                 string               `json:"link"`
	GUID                 string               `json:"guid,omitempty"`
	SourceName           string               `json:"sourceName"`
	PublishedDate        *time.Time           `json:"publishedDate,omitempty"`
	DescriptionSnippet   string               `json:"descriptionSnippet,omitempty"`
	FetchedAt            time.Time            `json:"fetchedAt"`
	IsHidden             bool                 `json:"isHidden"`
	IsRead               bool                 `json:"isRead"`
	IsStarred            bool                 `json:"isStarred"`
	NewsCategory         string               `json:"newsCategory,omitempty"`
	TechCategory         string               `json:"techCategory,omitempty"`
	CategorizationStatus CategorizationStatus `json:"categorizationStatus"`
	CategorizedAt        *time.Time           `json:"categorizedAt,omitempty"`
}

// ScrapingConfig holds the HTML extraction rules for a source.
// Only meaningful when the source type is "html". Empty selector fields
// fall back to the site profile matched by WebsiteID, then to defaults.
type ScrapingConfig struct {
	WebsiteID           string `json:"websiteId,omitempty" yaml:"website_id"`
	MaxArticles         int    `json:"maxArticles,omitempty" yaml:"max_articles"`
	ArticleSelector     string `json:"articleSelector,omitempty" yaml:"article_selector"`
	TitleSelector       string `json:"titleSelector,omitempty" yaml:"title_selector"`
	LinkSelector        string `json:"linkSelector,omitempty" yaml:"link_selector"`
	DateSelector        string `json:"dateSelector,omitempty" yaml:"date_selector"`
	DescriptionSelector string `json:"descriptionSelector,omitempty" yaml:"description_selector"`
}

// Source represents a configured origin to fetch articles from.
// The Last* fields are written back by the orchestrator after every
// attempt; everything else is user-managed.
type Source struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	URL              string          `json:"url"`
	Type             SourceType      `json:"type"`
	IsEnabled        bool            `json:"isEnabled"`
	ScrapingConfig   *ScrapingConfig `json:"scrapingConfig,omitempty"`
	LastFetchedAt    *time.Time      `json:"lastFetchedAt,omitempty"`
	LastStatus       string          `json:"lastStatus,omitempty"`
	LastFetchMessage string          `json:"lastFetchMessage,omitempty"`
	LastError        string          `json:"lastError,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// CandidateItem is one article candidate produced by an extractor,
// before deduplication.
type CandidateItem struct {
	Title              string
	Link               string
	GUID               string
	PublishedDate      *time.Time
	DescriptionSnippet string
}

// SummaryStatus is the outcome of processing a single source.
type SummaryStatus string

// Per-source outcomes.
const (
	StatusSuccess        SummaryStatus = "success"
	StatusPartialSuccess SummaryStatus = "partial_success"
	StatusFailed         SummaryStatus = "failed"
)

// ItemError records a failure scoped to a single candidate item.
type ItemError struct {
	ItemTitle string `json:"itemTitle,omitempty"`
	ItemLink  string `json:"itemLink,omitempty"`
	Message   string `json:"message"`
}

// ProcessingSummary is the per-source result of one fetch attempt.
// Status is failed iff FetchError is set; partial_success iff the fetch
// succeeded but Errors is non-empty.
type ProcessingSummary struct {
	SourceURL       string        `json:"sourceUrl"`
	SourceName      string        `json:"sourceName"`
	Type            SourceType    `json:"type"`
	Status          SummaryStatus `json:"status"`
	Message         string        `json:"message,omitempty"`
	ItemsFound      int           `json:"itemsFound"`
	ItemsConsidered int           `json:"itemsConsidered"`
	ItemsProcessed  int           `json:"itemsProcessed"`
	NewItemsAdded   int           `json:"newItemsAdded"`
	ItemsSkipped    int           `json:"itemsSkipped"`
	Errors          []ItemError   `json:"errors,omitempty"`
	FetchError      string        `json:"fetchError,omitempty"`
}

// RunStatus is the overall outcome of an orchestration run.
type RunStatus string

// Run statuses. A run is created as in-progress so an aborted process
// remains observable in the run history.
const (
	RunInProgress          RunStatus = "in-progress"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// FetchRun is the persistent record of one orchestration run.
type FetchRun struct {
	ID                  int64               `json:"id"`
	StartTime           time.Time           `json:"startTime"`
	EndTime             *time.Time          `json:"endTime,omitempty"`
	Status              RunStatus           `json:"status"`
	SourcesAttempted    int                 `json:"totalSourcesAttempted"`
	SourcesSucceeded    int                 `json:"totalSourcesSuccessfullyProcessed"`
	SourcesFailed       int                 `json:"totalSourcesFailedWithError"`
	NewArticlesAdded    int                 `json:"totalNewArticlesAddedAcrossAllSources"`
	OrchestrationErrors []string            `json:"orchestrationErrors,omitempty"`
	SourceSummaries     []ProcessingSummary `json:"sourceSummaries,omitempty"`
}
