package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/document"
)

// maxErrorMessageLen bounds how much of a failure's error text is persisted
// onto a ProcessingStatus row.
const maxErrorMessageLen = 500

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned documents. All pods run
// this independently; recovery is idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds in_progress documents with stale heartbeats
// and marks them as timed_out (terminal state).
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.client.Document.Query().
		Where(
			document.StatusEQ(document.StatusInProgress),
			document.LastInteractionAtNotNil(),
			document.LastInteractionAtLT(threshold),
			document.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned documents: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("Detected orphaned documents", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, doc := range orphans {
		if err := p.recoverOrphanedDocument(ctx, doc); err != nil {
			slog.Error("Failed to recover orphaned document", "document_id", doc.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("Orphan recovery completed with failures", "total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

// recoverOrphanedDocument marks a single orphaned document as timed_out.
func (p *WorkerPool) recoverOrphanedDocument(ctx context.Context, doc *ent.Document) error {
	log := slog.With("document_id", doc.ID, "old_pod_id", doc.PodID)

	lastHeartbeat := "unknown"
	if doc.LastInteractionAt != nil {
		lastHeartbeat = doc.LastInteractionAt.Format(time.RFC3339)
	}
	podID := "unknown"
	if doc.PodID != nil {
		podID = *doc.PodID
	}

	errorMsg := fmt.Sprintf("Orphaned: no heartbeat from pod %s since %s", podID, lastHeartbeat)
	if err := markDocumentTimedOut(ctx, p.client, doc, errorMsg); err != nil {
		return err
	}

	log.Warn("Orphaned document marked as timed_out", "last_heartbeat", lastHeartbeat)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of documents owned by
// this pod that were in-progress when the pod previously crashed. Called
// once during startup, before the worker pool begins processing.
func CleanupStartupOrphans(ctx context.Context, client *ent.Client, podID string) error {
	orphans, err := client.Document.Query().
		Where(
			document.StatusEQ(document.StatusInProgress),
			document.PodIDEQ(podID),
			document.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query startup orphans: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Found startup orphans from previous run", "pod_id", podID, "count", len(orphans))

	for _, doc := range orphans {
		errorMsg := fmt.Sprintf("Orphaned: pod %s restarted while document was in progress", podID)
		if err := markDocumentTimedOut(ctx, client, doc, errorMsg); err != nil {
			slog.Error("Failed to mark startup orphan", "document_id", doc.ID, "error", err)
			continue
		}
		slog.Info("Startup orphan recovered", "document_id", doc.ID)
	}

	return nil
}

// markDocumentTimedOut marks a document as timed_out and records the error
// on its shared ProcessingStatus row, truncated to 500 characters.
func markDocumentTimedOut(ctx context.Context, client *ent.Client, doc *ent.Document, errorMsg string) error {
	now := time.Now()

	if len(errorMsg) > maxErrorMessageLen {
		errorMsg = errorMsg[:maxErrorMessageLen]
	}

	tx, err := client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Document.UpdateOneID(doc.ID).
		SetStatus(document.StatusTimedOut).
		ClearCurrentStep().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark document as timed_out: %w", err)
	}

	if err := tx.ProcessingStatus.UpdateOneID(doc.ProcessingStatusID).
		SetDatetimeEnded(now).
		SetErrorMessage(errorMsg).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to update processing status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
