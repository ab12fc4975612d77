package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ingestDocumentRequest is the manual stand-in for the out-of-scope
// blob-created event: a deployment with a real object store notifies this
// way instead.
type ingestDocumentRequest struct {
	BlobBucket string `json:"blob_bucket" binding:"required"`
	BlobKey    string `json:"blob_key" binding:"required"`
}

// ingestDocument handles POST /documents. It creates the shared
// ProcessingStatus row and a pending Document row; pkg/queue's worker pool
// picks the document up on its next poll.
func (s *Server) ingestDocument(c *gin.Context) {
	var req ingestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	ps, err := s.client.ProcessingStatus.Create().
		SetID(uuid.NewString()).
		SetFileName(req.BlobKey).
		SetFileType("financial_document").
		SetTotalStepCount(4).
		SetDatetimeStarted(now).
		Save(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	doc, err := s.client.Document.Create().
		SetID(uuid.NewString()).
		SetBlobBucket(req.BlobBucket).
		SetBlobKey(req.BlobKey).
		SetProcessingStatusID(ps.ID).
		SetCreatedAt(now).
		Save(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"document_id": doc.ID, "processing_status_id": ps.ID})
}

// getDocument handles GET /documents/:id.
func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.client.Document.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// cancelDocument handles DELETE /documents/:id: cancels the in-flight
// execution on this pod, if any (pkg/queue.Registry). A document being
// processed by a different replica is unaffected — its own worker pool
// will observe the cancellation the next time this endpoint is hit on
// that replica.
func (s *Server) cancelDocument(c *gin.Context) {
	if s.pool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue not running on this replica"})
		return
	}
	id := c.Param("id")
	if !s.pool.CancelDocument(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not active on this replica"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling", "document_id": id})
}
