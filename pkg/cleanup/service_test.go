package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkeep/graphkeep/pkg/config"
	testdb "github.com/graphkeep/graphkeep/test/database"
)

func TestService_SweepsExpiredChunks(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := client.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY, session_id TEXT NOT NULL, channel TEXT NOT NULL,
			payload JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL
		)`)
	require.NoError(t, err)

	doc, err := client.Document.Create().
		SetID("doc-1").
		SetBlobBucket("bucket").
		SetBlobKey("key.pdf").
		SetProcessingStatusID("ps-1").
		SetCreatedAt(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	_, err = client.Chunk.Create().
		SetID("chunk-expired").
		SetDocumentID(doc.ID).
		SetStartPage(0).
		SetEndPage(0).
		SetText("old").
		SetSource("X").
		SetCreatedAt(time.Now().Add(-2 * time.Hour)).
		SetExpiresAt(time.Now().Add(-time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	_, err = client.Chunk.Create().
		SetID("chunk-fresh").
		SetDocumentID(doc.ID).
		SetStartPage(1).
		SetEndPage(1).
		SetText("new").
		SetSource("X").
		SetCreatedAt(time.Now()).
		SetExpiresAt(time.Now().Add(time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		ChunkTTL: time.Hour, RecordSetTTL: time.Hour, BucketTTL: time.Hour,
		PromptLogTTL: time.Hour, EventTTL: time.Hour, CleanupInterval: time.Hour,
	}
	svc := NewService(cfg, client.Client, client.DB())
	svc.runAll(ctx)

	remaining, err := client.Chunk.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestService_SweepsExpiredPromptLogs(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := client.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY, session_id TEXT NOT NULL, channel TEXT NOT NULL,
			payload JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL
		)`)
	require.NoError(t, err)

	_, err = client.PromptLog.Create().
		SetID("prompt-expired").
		SetPromptText("hello").
		SetCreatedAt(time.Now().Add(-48 * time.Hour)).
		SetExpiresAt(time.Now().Add(-time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		ChunkTTL: time.Hour, RecordSetTTL: time.Hour, BucketTTL: time.Hour,
		PromptLogTTL: time.Hour, EventTTL: time.Hour, CleanupInterval: time.Hour,
	}
	svc := NewService(cfg, client.Client, client.DB())
	svc.runAll(ctx)

	remaining, err := client.PromptLog.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestService_SweepsOrphanedEvents(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := client.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY, session_id TEXT NOT NULL, channel TEXT NOT NULL,
			payload JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL
		)`)
	require.NoError(t, err)

	_, err = client.DB().ExecContext(ctx,
		`INSERT INTO events (session_id, channel, payload, created_at) VALUES ($1, $2, $3, $4)`,
		"doc-1", "document.doc-1", []byte(`{}`), time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		ChunkTTL: time.Hour, RecordSetTTL: time.Hour, BucketTTL: time.Hour,
		PromptLogTTL: time.Hour, EventTTL: time.Hour, CleanupInterval: time.Hour,
	}
	svc := NewService(cfg, client.Client, client.DB())
	svc.runAll(ctx)

	var count int
	require.NoError(t, client.DB().QueryRowContext(ctx, `SELECT count(*) FROM events`).Scan(&count))
	assert.Equal(t, 0, count)
}
