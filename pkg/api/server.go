// Package api implements the progress API and the manual document/news
// ingress endpoints that stand in for the out-of-scope blob-event producer:
// gin-gonic/gin handlers, split one file per concern.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/pkg/database"
	"github.com/graphkeep/graphkeep/pkg/news"
	"github.com/graphkeep/graphkeep/pkg/queue"
)

// Server holds every dependency the HTTP surface needs. newsStore/newsProc
// may be nil in a deployment that only runs the document pipeline.
type Server struct {
	client    *ent.Client
	db        *database.Client
	pool      *queue.WorkerPool
	newsProc  *news.Processor
	newsStore *news.Store
}

// NewServer builds a Server. pool, newsProc and newsStore may be nil;
// routes that depend on a nil collaborator respond 503.
func NewServer(db *database.Client, pool *queue.WorkerPool, newsProc *news.Processor, newsStore *news.Store) *Server {
	return &Server{client: db.Client, db: db, pool: pool, newsProc: newsProc, newsStore: newsStore}
}

// RegisterRoutes mounts every handler onto router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	router.POST("/documents", s.ingestDocument)
	router.GET("/documents/:id", s.getDocument)
	router.DELETE("/documents/:id", s.cancelDocument)

	router.POST("/news", s.ingestNews)
	router.POST("/news/:id/reprocess", s.reprocessNews)

	router.GET("/status", s.listStatus)
	router.DELETE("/status", s.clearStatus)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbHealth, "error": err.Error()})
		return
	}

	body := gin.H{"status": "healthy", "database": dbHealth}
	if s.pool != nil {
		body["queue"] = s.pool.Health()
	}
	c.JSON(http.StatusOK, body)
}
