package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/graphkeep/graphkeep/pkg/news"
)

// ingestNewsRequest is the manual stand-in for the out-of-scope
// blob-created event that normally triggers the news path.
type ingestNewsRequest struct {
	Date  string `json:"date" binding:"required"`
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
	URL   string `json:"url"`
}

// ingestNews handles POST /news. Processing runs in the background — the
// news path routinely takes minutes per article (graph lookups plus one
// LLM call per path) — and the response only confirms the article was
// accepted.
func (s *Server) ingestNews(c *gin.Context) {
	if s.newsProc == nil || s.newsStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news path not configured on this replica"})
		return
	}

	var req ingestNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := news.ReprocessInput(req.Date, req.Title, req.Text, req.URL)
	psID, err := s.startNewsProgress(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go s.runNewsArticle(content, psID)

	c.JSON(http.StatusAccepted, gin.H{"processing_status_id": psID})
}

// reprocessNews handles POST /news/:id/reprocess: reconstructs the tagged
// body from a previously stored record, reruns the news path, and replaces
// the original row with the fresh result.
func (s *Server) reprocessNews(c *gin.Context) {
	if s.newsProc == nil || s.newsStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news path not configured on this replica"})
		return
	}

	id := c.Param("id")
	content, err := s.newsStore.ReprocessContent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	psID, err := s.startNewsProgress(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		s.runNewsArticle(content, psID)
		if err := s.newsStore.Delete(context.Background(), id); err != nil {
			slog.Error("news: failed to delete reprocessed source record", "news_id", id, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"processing_status_id": psID})
}

func (s *Server) startNewsProgress(ctx context.Context, fileName string) (string, error) {
	ps, err := s.client.ProcessingStatus.Create().
		SetID(uuid.NewString()).
		SetFileName(fileName).
		SetFileType("news").
		SetTotalStepCount(1).
		SetDatetimeStarted(time.Now()).
		Save(ctx)
	if err != nil {
		return "", err
	}
	return ps.ID, nil
}

// runNewsArticle drives one article through the news path end-to-end on a
// detached context, since the triggering HTTP request has already
// returned.
func (s *Server) runNewsArticle(content, processingStatusID string) {
	ctx := context.Background()
	log := slog.With("processing_status_id", processingStatusID)

	record, err := s.newsProc.ProcessArticle(ctx, content)
	if err != nil {
		msg := err.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		if uerr := s.client.ProcessingStatus.UpdateOneID(processingStatusID).
			SetDatetimeEnded(time.Now()).
			SetErrorMessage(msg).
			Exec(ctx); uerr != nil {
			log.Error("failed to record news processing failure", "error", uerr)
		}
		log.Error("news processing failed", "error", err)
		return
	}

	if _, err := s.newsStore.Save(ctx, record); err != nil {
		log.Error("failed to persist news record", "error", err)
		return
	}

	if err := s.client.ProcessingStatus.UpdateOneID(processingStatusID).
		AddCompletedStepCount(1).
		SetDatetimeEnded(time.Now()).
		Exec(ctx); err != nil {
		log.Error("failed to close news processing status", "error", err)
	}
}
