// Package cleanup sweeps the TTL-bearing scratch tables the ingestion and
// news pipelines leave behind: chunks, record sets, buckets, prompt logs,
// and orphaned progress events.
package cleanup

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/bucket"
	"github.com/graphkeep/graphkeep/ent/chunk"
	"github.com/graphkeep/graphkeep/ent/promptlog"
	"github.com/graphkeep/graphkeep/ent/recordset"
	"github.com/graphkeep/graphkeep/pkg/config"
)

// Service periodically deletes rows past their expires_at TTL. All
// operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	client *ent.Client
	events *sql.DB

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. events is the raw *sql.DB
// backing the hand-written events table (pkg/events has no ent schema).
func NewService(cfg *config.RetentionConfig, client *ent.Client, events *sql.DB) *Service {
	return &Service{config: cfg, client: client, events: events}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"chunk_ttl", s.config.ChunkTTL,
		"record_set_ttl", s.config.RecordSetTTL,
		"bucket_ttl", s.config.BucketTTL,
		"prompt_log_ttl", s.config.PromptLogTTL,
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.sweepChunks(ctx)
	s.sweepRecordSets(ctx)
	s.sweepBuckets(ctx)
	s.sweepPromptLogs(ctx)
	s.sweepOrphanedEvents(ctx)
}

func (s *Service) sweepChunks(ctx context.Context) {
	count, err := s.client.Chunk.Delete().
		Where(chunk.ExpiresAtLT(time.Now())).
		Exec(ctx)
	if err != nil {
		slog.Error("Retention: chunk cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired chunks", "count", count)
	}
}

func (s *Service) sweepRecordSets(ctx context.Context) {
	count, err := s.client.RecordSet.Delete().
		Where(recordset.ExpiresAtLT(time.Now())).
		Exec(ctx)
	if err != nil {
		slog.Error("Retention: record set cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired record sets", "count", count)
	}
}

func (s *Service) sweepBuckets(ctx context.Context) {
	count, err := s.client.Bucket.Delete().
		Where(bucket.ExpiresAtLT(time.Now())).
		Exec(ctx)
	if err != nil {
		slog.Error("Retention: bucket cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired buckets", "count", count)
	}
}

func (s *Service) sweepPromptLogs(ctx context.Context) {
	count, err := s.client.PromptLog.Delete().
		Where(promptlog.ExpiresAtLT(time.Now())).
		Exec(ctx)
	if err != nil {
		slog.Error("Retention: prompt log cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired prompt logs", "count", count)
	}
}

// sweepOrphanedEvents deletes events rows past EventTTL. events has no ent
// schema (pkg/events writes it directly), so this runs raw SQL like the
// rest of that package.
func (s *Service) sweepOrphanedEvents(ctx context.Context) {
	if s.events == nil {
		return
	}
	res, err := s.events.ExecContext(ctx,
		`DELETE FROM events WHERE created_at < $1`,
		time.Now().Add(-s.config.EventTTL),
	)
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if count, _ := res.RowsAffected(); count > 0 {
		slog.Info("Retention: deleted orphaned events", "count", count)
	}
}
