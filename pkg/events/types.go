// Package events provides progress-event delivery over PostgreSQL
// NOTIFY/LISTEN for the document-ingestion and news-processing pipelines.
//
// There is no WebSocket/UI surface in this module — events exist purely so
// an operator process (or the status API) can observe pipeline progress
// without polling the processing_statuses table on every tick. Each event
// is persisted to the
// events table and broadcast via pg_notify in the same transaction, so
// NOTIFY never fires for a row a concurrent reader can't yet see.
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	EventTypeDocumentStatus = "document.status"
	EventTypeNewsStatus     = "news.status"
)

// DocumentChannel returns the NOTIFY channel for one document's progress.
func DocumentChannel(documentID string) string {
	return "document:" + documentID
}

// NewsChannel is the NOTIFY channel for news-processing progress.
const NewsChannel = "news"
