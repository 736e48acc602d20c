package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"newshub/internal/categorize"
	"newshub/internal/config"
	"newshub/internal/fetcher"
	"newshub/internal/model"
	"newshub/internal/pipeline"
	"newshub/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// feedTransport serves canned RSS bodies keyed by request URL.
type feedTransport struct {
	feeds map[string]string
}

func (ft *feedTransport) Do(req *http.Request) (*http.Response, error) {
	body, ok := ft.feeds[req.URL.String()]
	if !ok {
		return &http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader("not found"))}, nil
	}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}, nil
}

type testEnv struct {
	store  *storage.SQLite
	server *Server
}

func newTestEnv(t *testing.T, feeds map[string]string) *testEnv {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := pipeline.NewProcessor(fetcher.New(&feedTransport{feeds: feeds}), store, config.Caps{}, log)
	orch := pipeline.NewOrchestrator(store, proc, log)
	worker := categorize.NewWorker(store, categorize.NewKeywordClient(), log)

	return &testEnv{
		store:  store,
		server: NewServer(store, orch, worker, log),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func testFeed(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<item><title>Post %d</title><link>https://feed.example.com/p/%d</link></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestSourceCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	// Create
	rec := env.do(t, http.MethodPost, "/api/sources", gin.H{
		"name": "AI Weekly", "url": "https://feed.example.com/rss", "type": "rss",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created model.Source
	decodeBody(t, rec, &created)
	if created.ID == 0 || !created.IsEnabled {
		t.Errorf("created source = %+v, want id set and enabled", created)
	}

	// Duplicate URL conflicts
	rec = env.do(t, http.MethodPost, "/api/sources", gin.H{
		"name": "Other", "url": "https://feed.example.com/rss", "type": "rss",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}

	// List
	rec = env.do(t, http.MethodGet, "/api/sources", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Sources []model.Source `json:"sources"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Sources) != 1 {
		t.Fatalf("listed %d sources, want 1", len(listed.Sources))
	}

	// Update, including disable
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/sources/%d", created.ID), gin.H{
		"name": "AI Weekly", "url": "https://feed.example.com/rss", "type": "rss", "isEnabled": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated model.Source
	decodeBody(t, rec, &updated)
	if updated.IsEnabled {
		t.Error("source still enabled after update")
	}

	// Delete
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/sources/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/sources/%d", created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing name", gin.H{"url": "https://x.example.com", "type": "rss"}},
		{"missing url", gin.H{"name": "X", "type": "rss"}},
		{"bad type", gin.H{"name": "X", "url": "https://x.example.com", "type": "atom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/sources", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTriggerRunAndGetRun(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"https://feed.example.com/rss": testFeed(3),
	})

	src := &model.Source{Name: "Feed", URL: "https://feed.example.com/rss", Type: model.TypeRSS, IsEnabled: true}
	if err := env.store.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/runs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger status = %d, body %s", rec.Code, rec.Body.String())
	}
	var triggered struct {
		ID               int64  `json:"id"`
		Status           string `json:"status"`
		NewArticlesAdded int    `json:"totalNewArticlesAddedAcrossAllSources"`
	}
	decodeBody(t, rec, &triggered)
	if triggered.Status != string(model.RunCompleted) {
		t.Errorf("run status = %q, want %q", triggered.Status, model.RunCompleted)
	}
	if triggered.NewArticlesAdded != 3 {
		t.Errorf("new articles = %d, want 3", triggered.NewArticlesAdded)
	}
	// The trigger response is a summary without per-source detail.
	if strings.Contains(rec.Body.String(), "sourceSummaries") {
		t.Error("trigger response should not embed source summaries")
	}

	// The full record, summaries included, comes from GET /api/runs/:id.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/runs/%d", triggered.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get run status = %d", rec.Code)
	}
	var run model.FetchRun
	decodeBody(t, rec, &run)
	if len(run.SourceSummaries) != 1 {
		t.Errorf("got %d source summaries, want 1", len(run.SourceSummaries))
	}

	rec = env.do(t, http.MethodGet, "/api/runs/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestTriggerSourceRun(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"https://feed.example.com/rss": testFeed(2),
	})

	src := &model.Source{Name: "Feed", URL: "https://feed.example.com/rss", Type: model.TypeRSS, IsEnabled: true}
	if err := env.store.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/sources/%d/run", src.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		RunID   int64                    `json:"runId"`
		Summary *model.ProcessingSummary `json:"summary"`
	}
	decodeBody(t, rec, &resp)
	if resp.RunID == 0 || resp.Summary == nil {
		t.Fatalf("response = %s", rec.Body.String())
	}
	if resp.Summary.NewItemsAdded != 2 {
		t.Errorf("new items = %d, want 2", resp.Summary.NewItemsAdded)
	}

	rec = env.do(t, http.MethodPost, "/api/sources/999/run", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing source status = %d, want 404", rec.Code)
	}
}

func TestListRunsPagination(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"https://feed.example.com/rss": testFeed(1),
	})
	src := &model.Source{Name: "Feed", URL: "https://feed.example.com/rss", Type: model.TypeRSS, IsEnabled: true}
	if err := env.store.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	for i := 0; i < 3; i++ {
		if rec := env.do(t, http.MethodPost, "/api/runs", nil); rec.Code != http.StatusOK {
			t.Fatalf("trigger %d status = %d", i, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/runs?page=2&limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Runs  []model.FetchRun `json:"runs"`
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
		Total int              `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 3 || resp.Page != 2 || len(resp.Runs) != 1 {
		t.Errorf("page=%d limit=%d total=%d runs=%d, want page 2 of 3 with 1 run",
			resp.Page, resp.Limit, resp.Total, len(resp.Runs))
	}
}

func TestArticleFlagsAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	a := &model.Article{Title: "Post", Link: "https://feed.example.com/p/1", SourceName: "Feed"}
	if err := env.store.CreateArticle(ctx, a); err != nil {
		t.Fatalf("seed article: %v", err)
	}

	rec := env.do(t, http.MethodPatch, fmt.Sprintf("/api/articles/%d/visibility", a.ID), gin.H{"isHidden": true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("hide status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/articles/%d/read", a.ID), gin.H{"isRead": true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("read status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/articles/%d/star", a.ID), gin.H{"isStarred": true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("star status = %d", rec.Code)
	}

	got, err := env.store.GetArticle(ctx, a.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if !got.IsHidden || !got.IsRead || !got.IsStarred {
		t.Errorf("flags = hidden=%v read=%v starred=%v, want all true", got.IsHidden, got.IsRead, got.IsStarred)
	}

	// Hidden articles drop out of the default listing.
	rec = env.do(t, http.MethodGet, "/api/articles", nil)
	var listed struct {
		Articles []model.Article `json:"articles"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Articles) != 0 {
		t.Errorf("default listing has %d articles, want 0 hidden excluded", len(listed.Articles))
	}
	rec = env.do(t, http.MethodGet, "/api/articles?includeHidden=true", nil)
	decodeBody(t, rec, &listed)
	if len(listed.Articles) != 1 {
		t.Errorf("includeHidden listing has %d articles, want 1", len(listed.Articles))
	}

	// Missing body is a 400, not a silent toggle.
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/articles/%d/visibility", a.ID), gin.H{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/articles/%d", a.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/api/articles/%d/visibility", a.ID), gin.H{"isHidden": false})
	if rec.Code != http.StatusNotFound {
		t.Errorf("patch deleted article status = %d, want 404", rec.Code)
	}
}

func TestTriggerCategorization(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	a := &model.Article{Title: "Startup ships software", Link: "https://feed.example.com/p/1", SourceName: "Feed"}
	if err := env.store.CreateArticle(ctx, a); err != nil {
		t.Fatalf("seed article: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/categorize/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res categorize.SweepResult
	decodeBody(t, rec, &res)
	if res.Processed != 1 || res.Completed != 1 {
		t.Errorf("sweep = %+v, want 1 processed, 1 completed", res)
	}

	got, err := env.store.GetArticle(ctx, a.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if got.NewsCategory != "Technology" {
		t.Errorf("newsCategory = %q, want Technology", got.NewsCategory)
	}
}

func TestMergedFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	a := &model.Article{Title: "Feed Post", Link: "https://feed.example.com/p/1", SourceName: "Feed"}
	if err := env.store.CreateArticle(ctx, a); err != nil {
		t.Fatalf("seed article: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/feed.xml", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("content type = %q, want xml", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Feed Post") || !strings.Contains(body, "https://feed.example.com/p/1") {
		t.Errorf("feed body missing article: %s", body)
	}
}

func TestInvalidID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/runs/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
