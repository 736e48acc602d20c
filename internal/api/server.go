// Package api exposes the REST surface consumed by the dashboard UI.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"newshub/internal/categorize"
	"newshub/internal/pipeline"
	"newshub/internal/storage"
)

// Server wraps the gin router and its collaborators.
type Server struct {
	store  storage.Storage
	orch   *pipeline.Orchestrator
	worker *categorize.Worker
	log    *slog.Logger
	router *gin.Engine
}

// NewServer builds the router with all routes registered.
func NewServer(store storage.Storage, orch *pipeline.Orchestrator, worker *categorize.Worker, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		orch:   orch,
		worker: worker,
		log:    log,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/runs", s.triggerRun)
		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)

		api.GET("/sources", s.listSources)
		api.POST("/sources", s.createSource)
		api.PUT("/sources/:id", s.updateSource)
		api.DELETE("/sources/:id", s.deleteSource)
		api.POST("/sources/:id/run", s.triggerSourceRun)

		api.GET("/articles", s.listArticles)
		api.PATCH("/articles/:id/visibility", s.setArticleVisibility)
		api.PATCH("/articles/:id/read", s.setArticleRead)
		api.PATCH("/articles/:id/star", s.setArticleStarred)
		api.DELETE("/articles/:id", s.deleteArticle)

		api.POST("/categorize/run", s.triggerCategorization)
	}

	router.GET("/feed.xml", s.mergedFeed)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	s.router = router
	return s
}

// Router exposes the underlying gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on addr, blocking until it stops.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
