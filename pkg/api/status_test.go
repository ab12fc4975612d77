package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/graphkeep/graphkeep/ent"
)

func TestToStatusView_Pending(t *testing.T) {
	ps := &ent.ProcessingStatus{
		ID:                 "ps-1",
		FileName:           "report.pdf",
		FileType:           "financial_document",
		CompletedStepCount: 0,
		TotalStepCount:     4,
		DatetimeStarted:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	v := toStatusView(ps)
	assert.Equal(t, "pending", v.Status)
	assert.Equal(t, 0, v.ProgressPercentage)
}

func TestToStatusView_Processing(t *testing.T) {
	ps := &ent.ProcessingStatus{
		ID: "ps-2", FileName: "x", FileType: "news",
		CompletedStepCount: 2, TotalStepCount: 4,
		DatetimeStarted: time.Now(),
	}
	v := toStatusView(ps)
	assert.Equal(t, "processing", v.Status)
	assert.Equal(t, 50, v.ProgressPercentage)
}

func TestToStatusView_Completed(t *testing.T) {
	ended := time.Now()
	ps := &ent.ProcessingStatus{
		ID: "ps-3", FileName: "x", FileType: "news",
		CompletedStepCount: 1, TotalStepCount: 1,
		DatetimeStarted: time.Now().Add(-time.Minute),
		DatetimeEnded:   &ended,
	}
	v := toStatusView(ps)
	assert.Equal(t, "completed", v.Status)
	assert.Equal(t, 100, v.ProgressPercentage)
	assert.NotNil(t, v.DatetimeEnded)
}
