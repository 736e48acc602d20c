package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"newshub/internal/model"
	"newshub/internal/storage"
)

// triggerRun starts a full orchestration run. The run blocks the request
// and always yields a summary; only a run-start failure is an error
// response.
func (s *Server) triggerRun(c *gin.Context) {
	run := s.orch.RunAll(c.Request.Context())
	if run.ID == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "run could not be started",
			"detail": run.OrchestrationErrors,
		})
		return
	}
	c.JSON(http.StatusOK, runSummary(run))
}

func (s *Server) triggerSourceRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	run, summary, err := s.orch.RunSource(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		s.log.Error("trigger source run", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": run.ID, "summary": summary})
}

func (s *Server) listRuns(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	runs, err := s.store.ListRuns(c.Request.Context(), page, limit)
	if err != nil {
		s.log.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := s.store.CountRuns(c.Request.Context())
	if err != nil {
		s.log.Error("count runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.FetchRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "page": page, "limit": limit, "total": total})
}

func (s *Server) getRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		s.log.Error("get run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

type sourceRequest struct {
	Name           string                `json:"name" binding:"required"`
	URL            string                `json:"url" binding:"required"`
	Type           model.SourceType      `json:"type" binding:"required"`
	IsEnabled      *bool                 `json:"isEnabled"`
	ScrapingConfig *model.ScrapingConfig `json:"scrapingConfig"`
}

func (r *sourceRequest) validate() string {
	if r.Type != model.TypeRSS && r.Type != model.TypeHTML {
		return "type must be rss or html"
	}
	return ""
}

func (s *Server) listSources(c *gin.Context) {
	sources, err := s.store.ListSources(c.Request.Context())
	if err != nil {
		s.log.Error("list sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sources == nil {
		sources = []model.Source{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (s *Server) createSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	src := model.Source{
		Name:           req.Name,
		URL:            req.URL,
		Type:           req.Type,
		IsEnabled:      true,
		ScrapingConfig: req.ScrapingConfig,
	}
	if req.IsEnabled != nil {
		src.IsEnabled = *req.IsEnabled
	}

	if err := s.store.CreateSource(c.Request.Context(), &src); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "a source with this url already exists"})
			return
		}
		s.log.Error("create source", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, src)
}

func (s *Server) updateSource(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	src, err := s.store.GetSource(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		s.log.Error("load source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	src.Name = req.Name
	src.URL = req.URL
	src.Type = req.Type
	src.ScrapingConfig = req.ScrapingConfig
	if req.IsEnabled != nil {
		src.IsEnabled = *req.IsEnabled
	}

	if err := s.store.UpdateSource(c.Request.Context(), src); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "a source with this url already exists"})
			return
		}
		s.log.Error("update source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, src)
}

func (s *Server) deleteSource(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteSource(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		s.log.Error("delete source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listArticles(c *gin.Context) {
	f := storage.ArticleFilter{
		Page:          intQuery(c, "page", 1),
		Limit:         intQuery(c, "limit", 50),
		IncludeHidden: c.Query("includeHidden") == "true",
		NewsCategory:  c.Query("category"),
		SourceName:    c.Query("source"),
	}
	articles, err := s.store.ListArticles(c.Request.Context(), f)
	if err != nil {
		s.log.Error("list articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "page": f.Page, "limit": f.Limit})
}

// setArticleVisibility is a partial update: it touches isHidden and
// nothing else.
func (s *Server) setArticleVisibility(c *gin.Context) {
	var req struct {
		IsHidden *bool `json:"isHidden" binding:"required"`
	}
	s.setArticleFlag(c, &req, func(id int64) error {
		return s.store.SetArticleHidden(c.Request.Context(), id, *req.IsHidden)
	})
}

func (s *Server) setArticleRead(c *gin.Context) {
	var req struct {
		IsRead *bool `json:"isRead" binding:"required"`
	}
	s.setArticleFlag(c, &req, func(id int64) error {
		return s.store.SetArticleRead(c.Request.Context(), id, *req.IsRead)
	})
}

func (s *Server) setArticleStarred(c *gin.Context) {
	var req struct {
		IsStarred *bool `json:"isStarred" binding:"required"`
	}
	s.setArticleFlag(c, &req, func(id int64) error {
		return s.store.SetArticleStarred(c.Request.Context(), id, *req.IsStarred)
	})
}

func (s *Server) setArticleFlag(c *gin.Context, req any, update func(id int64) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := update(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		s.log.Error("update article flag", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteArticle(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		s.log.Error("delete article", "article_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) triggerCategorization(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	res, err := s.worker.ProcessPending(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("categorization sweep", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// runSummary strips the embedded per-source summaries from a run for the
// trigger response; the full record stays available via GET /api/runs/:id.
func runSummary(run *model.FetchRun) gin.H {
	return gin.H{
		"id":                                    run.ID,
		"status":                                run.Status,
		"startTime":                             run.StartTime,
		"endTime":                               run.EndTime,
		"totalSourcesAttempted":                 run.SourcesAttempted,
		"totalSourcesSuccessfullyProcessed":     run.SourcesSucceeded,
		"totalSourcesFailedWithError":           run.SourcesFailed,
		"totalNewArticlesAddedAcrossAllSources": run.NewArticlesAdded,
		"orchestrationErrors":                   run.OrchestrationErrors,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
