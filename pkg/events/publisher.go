package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/graphkeep/graphkeep/ent/document"
)

// EventPublisher persists pipeline progress events and broadcasts them via
// PostgreSQL NOTIFY, truncating the NOTIFY payload to 8000 bytes (Postgres's
// own NOTIFY payload limit) and falling back to a persist-only write above
// that size.
type EventPublisher struct {
	db *sql.DB
}

// NewEventPublisher creates a new EventPublisher.
// The db parameter should be the *sql.DB from database.Client.DB().
func NewEventPublisher(db *sql.DB) *EventPublisher {
	return &EventPublisher{db: db}
}

// PublishDocumentStatus persists and broadcasts a document.status event.
// Satisfies queue.ProgressPublisher.
func (p *EventPublisher) PublishDocumentStatus(ctx context.Context, documentID string, status document.Status) error {
	return p.PublishDocumentStep(ctx, documentID, status, "", "")
}

// PublishDocumentStep persists and broadcasts a document.status event carrying
// the current pipeline step and, for StatusFailed, an error message. pkg/pipeline
// calls this directly for step-level detail; queue.Worker's plain status
// transitions go through PublishDocumentStatus.
func (p *EventPublisher) PublishDocumentStep(ctx context.Context, documentID string, status document.Status, currentStep, errMsg string) error {
	payload := DocumentStatusPayload{
		Type:        EventTypeDocumentStatus,
		DocumentID:  documentID,
		Status:      string(status),
		CurrentStep: currentStep,
		Error:       errMsg,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal DocumentStatusPayload: %w", err)
	}
	return p.persistAndNotify(ctx, documentID, DocumentChannel(documentID), payloadJSON)
}

// PublishNewsStatus persists and broadcasts a news.status event.
func (p *EventPublisher) PublishNewsStatus(ctx context.Context, newsID, interested string) error {
	payload := NewsStatusPayload{
		Type:       EventTypeNewsStatus,
		NewsID:     newsID,
		Interested: interested,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal NewsStatusPayload: %w", err)
	}
	return p.persistAndNotify(ctx, newsID, NewsChannel, payloadJSON)
}

// persistAndNotify persists a pre-marshaled event to the database and broadcasts
// via NOTIFY in a single transaction (pg_notify is transactional — held until COMMIT).
func (p *EventPublisher) persistAndNotify(ctx context.Context, sessionID, channel string, payloadJSON []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var eventID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (session_id, channel, payload, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		sessionID, channel, payloadJSON, time.Now(),
	).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}

	notifyPayload, err := injectDBEventIDAndTruncate(payloadJSON, eventID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event transaction: %w", err)
	}

	return nil
}

// injectDBEventIDAndTruncate adds db_event_id to the JSON payload for NOTIFY
// delivery and applies truncation if the result exceeds PostgreSQL's limit.
func injectDBEventIDAndTruncate(payloadJSON []byte, dbEventID int64) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload for db_event_id injection: %w", err)
	}
	m["db_event_id"] = dbEventID

	enrichedBytes, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal enriched NOTIFY payload: %w", err)
	}

	return truncateIfNeeded(string(enrichedBytes))
}

// truncateIfNeeded returns the payload string as-is if it fits within
// PostgreSQL's 8000-byte NOTIFY limit, otherwise returns a minimal
// truncation envelope with only routing fields.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	envelope := map[string]any{
		"truncated": true,
		"size":      len(payloadStr),
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal truncation envelope: %w", err)
	}
	return string(out), nil
}
