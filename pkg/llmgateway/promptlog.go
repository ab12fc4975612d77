package llmgateway

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// SavedPromptStore persists prompt text to the append-only prompt_logs
// table (ent/schema/promptlog.go) for replay/debugging. Writes are
// fire-and-forget from the caller's perspective and a 24h TTL is enforced
// by pkg/cleanup, not here.
type SavedPromptStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSavedPromptStore creates a store with the given retention TTL.
func NewSavedPromptStore(db *sql.DB, ttl time.Duration) *SavedPromptStore {
	return &SavedPromptStore{db: db, ttl: ttl}
}

// Save inserts one prompt log row. Failures are logged, not returned: a
// lost audit entry must never block generation.
func (s *SavedPromptStore) Save(promptID, promptText string) {
	if s == nil || s.db == nil {
		return
	}
	now := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_logs (prompt_id, prompt_text, created_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (prompt_id) DO NOTHING`,
		promptID, promptText, now, now.Add(s.ttl),
	)
	if err != nil {
		log.Printf("llmgateway: failed to save prompt log %s: %v", promptID, err)
	}
}
