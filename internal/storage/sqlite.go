package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"newshub/internal/model"
	"newshub/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSource inserts a new source and populates its ID and CreatedAt.
// Returns ErrDuplicate when a source with the same URL already exists.
func (s *SQLite) CreateSource(ctx context.Context, src *model.Source) error {
	cfg, err := marshalScrapingConfig(src.ScrapingConfig)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, url, type, is_enabled, scraping_config, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		src.Name, src.URL, string(src.Type), boolToInt(src.IsEnabled), cfg, now,
	)
	if err != nil {
		return wrapConstraint(err, "insert source")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const sourceColumns = `id, name, url, type, is_enabled, scraping_config,
	last_fetched_at, last_status, last_fetch_message, last_error, created_at`

// GetSource returns a single source by its ID.
func (s *SQLite) GetSource(ctx context.Context, id int64) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id,
	)
	return scanSource(row)
}

// ListSources returns all configured sources.
func (s *SQLite) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListEnabledSources returns all sources eligible for a fetch run.
func (s *SQLite) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE is_enabled = 1 ORDER BY id`)
}

func (s *SQLite) querySources(ctx context.Context, query string, args ...any) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// UpdateSource persists changes to the user-managed fields of a source.
func (s *SQLite) UpdateSource(ctx context.Context, src *model.Source) error {
	cfg, err := marshalScrapingConfig(src.ScrapingConfig)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, url = ?, type = ?, is_enabled = ?, scraping_config = ?
		 WHERE id = ?`,
		src.Name, src.URL, string(src.Type), boolToInt(src.IsEnabled), cfg, src.ID,
	)
	if err != nil {
		return wrapConstraint(err, "update source")
	}
	return requireRow(res)
}

// UpdateSourceRunState writes the bookkeeping fields after a fetch attempt.
func (s *SQLite) UpdateSourceRunState(ctx context.Context, id int64, state RunState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at = ?, last_status = ?, last_fetch_message = ?, last_error = ?
		 WHERE id = ?`,
		state.FetchedAt.UTC().Format(timeLayout), state.Status, state.Message, state.Error, id,
	)
	if err != nil {
		return fmt.Errorf("update source run state: %w", err)
	}
	return requireRow(res)
}

// DeleteSource removes a source by its ID.
func (s *SQLite) DeleteSource(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return requireRow(res)
}

// CreateArticle inserts a new article and populates its ID and FetchedAt.
// Returns ErrDuplicate when the link, or a non-empty GUID, already exists.
func (s *SQLite) CreateArticle(ctx context.Context, a *model.Article) error {
	now := time.Now().UTC().Truncate(time.Second)
	if a.FetchedAt.IsZero() {
		a.FetchedAt = now
	}
	if a.CategorizationStatus == "" {
		a.CategorizationStatus = model.CategorizationPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (title, link, guid, source_name, published_date, description_snippet,
		   fetched_at, is_hidden, is_read, is_starred, categorization_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Link, nullString(a.GUID), a.SourceName, nullTime(a.PublishedDate),
		a.DescriptionSnippet, a.FetchedAt.UTC().Format(timeLayout),
		boolToInt(a.IsHidden), boolToInt(a.IsRead), boolToInt(a.IsStarred),
		string(a.CategorizationStatus),
	)
	if err != nil {
		return wrapConstraint(err, "insert article")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

const articleColumns = `id, title, link, guid, source_name, published_date, description_snippet,
	fetched_at, is_hidden, is_read, is_starred, news_category, tech_category,
	categorization_status, categorized_at`

// GetArticle returns a single article by its ID.
func (s *SQLite) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id,
	)
	return scanArticle(row)
}

// ArticleExistsByLink checks whether an article with the given link is stored.
func (s *SQLite) ArticleExistsByLink(ctx context.Context, link string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM articles WHERE link = ?`, link)
}

// ArticleExistsByGUID checks whether an article with the given GUID is stored.
func (s *SQLite) ArticleExistsByGUID(ctx context.Context, guid string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM articles WHERE guid = ?`, guid)
}

func (s *SQLite) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return count > 0, nil
}

// ListArticles returns articles matching the filter, newest first.
func (s *SQLite) ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var conds []string
	var args []any

	if !f.IncludeHidden {
		conds = append(conds, "is_hidden = 0")
	}
	if f.NewsCategory != "" {
		conds = append(conds, "news_category = ?")
		args = append(args, f.NewsCategory)
	}
	if f.SourceName != "" {
		conds = append(conds, "source_name = ?")
		args = append(args, f.SourceName)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	query += " ORDER BY fetched_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	return s.queryArticles(ctx, query, args...)
}

// ListRecentArticles returns the newest non-hidden articles, for the
// republished feed.
func (s *SQLite) ListRecentArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE is_hidden = 0
		 ORDER BY fetched_at DESC, id DESC LIMIT ?`, limit)
}

func (s *SQLite) queryArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// SetArticleHidden toggles only the visibility flag of an article.
func (s *SQLite) SetArticleHidden(ctx context.Context, id int64, hidden bool) error {
	return s.setFlag(ctx, "is_hidden", id, hidden)
}

// SetArticleRead toggles only the read flag of an article.
func (s *SQLite) SetArticleRead(ctx context.Context, id int64, read bool) error {
	return s.setFlag(ctx, "is_read", id, read)
}

// SetArticleStarred toggles only the starred flag of an article.
func (s *SQLite) SetArticleStarred(ctx context.Context, id int64, starred bool) error {
	return s.setFlag(ctx, "is_starred", id, starred)
}

func (s *SQLite) setFlag(ctx context.Context, column string, id int64, value bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET `+column+` = ? WHERE id = ?`, boolToInt(value), id, //nolint:gosec // column is a fixed identifier
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return requireRow(res)
}

// DeleteArticle removes an article by its ID.
func (s *SQLite) DeleteArticle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return requireRow(res)
}

// ListPendingCategorization returns articles awaiting AI categorization,
// oldest first.
func (s *SQLite) ListPendingCategorization(ctx context.Context, limit int) ([]model.Article, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE categorization_status = ?
		 ORDER BY id LIMIT ?`,
		string(model.CategorizationPending), limit)
}

// SetCategorizationStatus updates only the enrichment status of an article.
func (s *SQLite) SetCategorizationStatus(ctx context.Context, id int64, status model.CategorizationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET categorization_status = ? WHERE id = ?`, string(status), id,
	)
	if err != nil {
		return fmt.Errorf("set categorization status: %w", err)
	}
	return requireRow(res)
}

// SaveCategorization records a completed enrichment result.
func (s *SQLite) SaveCategorization(ctx context.Context, id int64, newsCategory, techCategory string) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET news_category = ?, tech_category = ?,
		   categorization_status = ?, categorized_at = ?
		 WHERE id = ?`,
		newsCategory, techCategory, string(model.CategorizationCompleted), now, id,
	)
	if err != nil {
		return fmt.Errorf("save categorization: %w", err)
	}
	return requireRow(res)
}

// CreateRun inserts a new fetch run record and populates its ID.
func (s *SQLite) CreateRun(ctx context.Context, run *model.FetchRun) error {
	errsJSON, summariesJSON, err := marshalRunDetails(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_runs (start_time, end_time, status, sources_attempted, sources_succeeded,
		   sources_failed, new_articles_added, orchestration_errors, source_summaries)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartTime.UTC().Format(timeLayout), nullTime(run.EndTime), string(run.Status),
		run.SourcesAttempted, run.SourcesSucceeded, run.SourcesFailed, run.NewArticlesAdded,
		errsJSON, summariesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// UpdateRun persists the current state of a fetch run.
func (s *SQLite) UpdateRun(ctx context.Context, run *model.FetchRun) error {
	errsJSON, summariesJSON, err := marshalRunDetails(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE fetch_runs SET start_time = ?, end_time = ?, status = ?, sources_attempted = ?,
		   sources_succeeded = ?, sources_failed = ?, new_articles_added = ?,
		   orchestration_errors = ?, source_summaries = ?
		 WHERE id = ?`,
		run.StartTime.UTC().Format(timeLayout), nullTime(run.EndTime), string(run.Status),
		run.SourcesAttempted, run.SourcesSucceeded, run.SourcesFailed, run.NewArticlesAdded,
		errsJSON, summariesJSON, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return requireRow(res)
}

const runColumns = `id, start_time, end_time, status, sources_attempted, sources_succeeded,
	sources_failed, new_articles_added, orchestration_errors, source_summaries`

// GetRun returns a full run record including its embedded source summaries.
func (s *SQLite) GetRun(ctx context.Context, id int64) (*model.FetchRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM fetch_runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

// ListRuns returns run records newest first, without embedded summaries.
func (s *SQLite) ListRuns(ctx context.Context, page, limit int) ([]model.FetchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, status, sources_attempted, sources_succeeded,
		   sources_failed, new_articles_added, orchestration_errors, NULL
		 FROM fetch_runs ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.FetchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of stored run records.
func (s *SQLite) CountRuns(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func wrapConstraint(err error, op string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalScrapingConfig(cfg *model.ScrapingConfig) (any, error) {
	if cfg == nil {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal scraping config: %w", err)
	}
	return string(data), nil
}

func marshalRunDetails(run *model.FetchRun) (errsJSON, summariesJSON any, err error) {
	if len(run.OrchestrationErrors) > 0 {
		data, err := json.Marshal(run.OrchestrationErrors)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal orchestration errors: %w", err)
		}
		errsJSON = string(data)
	}
	if len(run.SourceSummaries) > 0 {
		data, err := json.Marshal(run.SourceSummaries)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal source summaries: %w", err)
		}
		summariesJSON = string(data)
	}
	return errsJSON, summariesJSON, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (*model.Source, error) {
	var src model.Source
	var typeStr string
	var isEnabled int
	var cfg, lastFetched, lastStatus, lastMsg, lastErr, created sql.NullString
	err := row.Scan(&src.ID, &src.Name, &src.URL, &typeStr, &isEnabled, &cfg,
		&lastFetched, &lastStatus, &lastMsg, &lastErr, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Type = model.SourceType(typeStr)
	src.IsEnabled = isEnabled == 1
	if cfg.Valid && cfg.String != "" {
		var sc model.ScrapingConfig
		if err := json.Unmarshal([]byte(cfg.String), &sc); err != nil {
			return nil, fmt.Errorf("unmarshal scraping config: %w", err)
		}
		src.ScrapingConfig = &sc
	}
	if lastFetched.Valid {
		t, _ := time.Parse(timeLayout, lastFetched.String)
		src.LastFetchedAt = &t
	}
	src.LastStatus = lastStatus.String
	src.LastFetchMessage = lastMsg.String
	src.LastError = lastErr.String
	if created.Valid {
		src.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &src, nil
}

func scanArticle(row scannable) (*model.Article, error) {
	var a model.Article
	var guid, published, newsCat, techCat, catAt sql.NullString
	var fetched, catStatus string
	var hidden, read, starred int
	err := row.Scan(&a.ID, &a.Title, &a.Link, &guid, &a.SourceName, &published,
		&a.DescriptionSnippet, &fetched, &hidden, &read, &starred,
		&newsCat, &techCat, &catStatus, &catAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	a.GUID = guid.String
	if published.Valid {
		t, _ := time.Parse(timeLayout, published.String)
		a.PublishedDate = &t
	}
	a.FetchedAt, _ = time.Parse(timeLayout, fetched)
	a.IsHidden = hidden == 1
	a.IsRead = read == 1
	a.IsStarred = starred == 1
	a.NewsCategory = newsCat.String
	a.TechCategory = techCat.String
	a.CategorizationStatus = model.CategorizationStatus(catStatus)
	if catAt.Valid {
		t, _ := time.Parse(timeLayout, catAt.String)
		a.CategorizedAt = &t
	}
	return &a, nil
}

func scanRun(row scannable) (*model.FetchRun, error) {
	var run model.FetchRun
	var start, status string
	var end, errsJSON, summariesJSON sql.NullString
	err := row.Scan(&run.ID, &start, &end, &status, &run.SourcesAttempted,
		&run.SourcesSucceeded, &run.SourcesFailed, &run.NewArticlesAdded,
		&errsJSON, &summariesJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.StartTime, _ = time.Parse(timeLayout, start)
	if end.Valid {
		t, _ := time.Parse(timeLayout, end.String)
		run.EndTime = &t
	}
	run.Status = model.RunStatus(status)
	if errsJSON.Valid && errsJSON.String != "" {
		if err := json.Unmarshal([]byte(errsJSON.String), &run.OrchestrationErrors); err != nil {
			return nil, fmt.Errorf("unmarshal orchestration errors: %w", err)
		}
	}
	if summariesJSON.Valid && summariesJSON.String != "" {
		if err := json.Unmarshal([]byte(summariesJSON.String), &run.SourceSummaries); err != nil {
			return nil, fmt.Errorf("unmarshal source summaries: %w", err)
		}
	}
	return &run, nil
}
