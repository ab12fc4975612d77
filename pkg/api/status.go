package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/processingstatus"
)

// statusView is one ProcessingStatus row with its derived fields, as
// returned by the progress API.
type statusView struct {
	ID                  string  `json:"id"`
	FileName            string  `json:"file_name"`
	FileType            string  `json:"file_type"`
	CompletedStepCount  int     `json:"completed_step_count"`
	TotalStepCount      int     `json:"total_step_count"`
	ProgressPercentage  int     `json:"progress_percentage"`
	Status              string  `json:"status"`
	DatetimeStarted     string  `json:"datetime_started"`
	DatetimeEnded       *string `json:"datetime_ended,omitempty"`
	ErrorMessage        *string `json:"error_message,omitempty"`
}

func toStatusView(ps *ent.ProcessingStatus) statusView {
	status := "processing"
	switch {
	case ps.CompletedStepCount == 0:
		status = "pending"
	case ps.CompletedStepCount >= ps.TotalStepCount:
		status = "completed"
	}

	pct := 0
	if ps.TotalStepCount > 0 {
		pct = int(math.Round(100 * float64(ps.CompletedStepCount) / float64(ps.TotalStepCount)))
	}

	v := statusView{
		ID:                 ps.ID,
		FileName:           ps.FileName,
		FileType:           ps.FileType,
		CompletedStepCount: ps.CompletedStepCount,
		TotalStepCount:     ps.TotalStepCount,
		ProgressPercentage: pct,
		Status:             status,
		DatetimeStarted:    ps.DatetimeStarted.Format("2006-01-02T15:04:05Z07:00"),
	}
	if ps.DatetimeEnded != nil {
		s := ps.DatetimeEnded.Format("2006-01-02T15:04:05Z07:00")
		v.DatetimeEnded = &s
	}
	if ps.ErrorMessage != nil {
		v.ErrorMessage = ps.ErrorMessage
	}
	return v
}

// listStatus handles GET /status: every ProcessingStatus row, newest first.
func (s *Server) listStatus(c *gin.Context) {
	rows, err := s.client.ProcessingStatus.Query().
		Order(ent.Desc(processingstatus.FieldDatetimeStarted)).
		All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]statusView, 0, len(rows))
	for _, ps := range rows {
		views = append(views, toStatusView(ps))
	}
	c.JSON(http.StatusOK, views)
}

// clearStatus handles DELETE /status: wipes every progress record.
func (s *Server) clearStatus(c *gin.Context) {
	if _, err := s.client.ProcessingStatus.Delete().Exec(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
