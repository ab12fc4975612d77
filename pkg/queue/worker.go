package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/document"
	"github.com/graphkeep/graphkeep/pkg/config"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes documents.
type Worker struct {
	id             string
	podID          string
	client         *ent.Client
	config         *config.QueueConfig
	executor       Executor
	progressEvents ProgressPublisher
	registry       Registry
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	mu                 sync.RWMutex
	status             WorkerStatus
	currentDocumentID  string
	itemsProcessed     int
	lastActivity       time.Time
}

// NewWorker creates a new queue worker. progressEvents may be nil (no
// real-time notification; pollers fall back to polling the status endpoint).
func NewWorker(id, podID string, client *ent.Client, cfg *config.QueueConfig, executor Executor, registry Registry, progressEvents ProgressPublisher) *Worker {
	return &Worker{
		id:             id,
		podID:          podID,
		client:         client,
		config:         cfg,
		executor:       executor,
		progressEvents: progressEvents,
		registry:       registry,
		stopCh:         make(chan struct{}),
		status:         WorkerStatusIdle,
		lastActivity:   time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                 w.id,
		Status:             string(w.status),
		CurrentDocumentID:  w.currentDocumentID,
		ItemsProcessed:     w.itemsProcessed,
		LastActivity:       w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoItemsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing document", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a document, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	activeCount, err := w.client.Document.Query().
		Where(document.StatusEQ(document.StatusInProgress)).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("checking active documents: %w", err)
	}
	if activeCount >= w.config.MaxConcurrent {
		return ErrAtCapacity
	}

	doc, err := w.claimNextDocument(ctx)
	if err != nil {
		return err
	}

	log := slog.With("document_id", doc.ID, "worker_id", w.id)
	log.Info("Document claimed")

	w.publishStatus(ctx, doc.ID, document.StatusInProgress)

	w.setStatus(WorkerStatusWorking, doc.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	docCtx, cancelDoc := context.WithTimeout(ctx, w.config.ProcessingTimeout)
	defer cancelDoc()

	w.registry.RegisterDocument(doc.ID, cancelDoc)
	defer w.registry.UnregisterDocument(doc.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(docCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, doc.ID)

	result := w.executor.Execute(docCtx, doc)

	if result == nil {
		result = w.synthesizeResult(docCtx)
	}
	if result.Status == "" && errors.Is(docCtx.Err(), context.DeadlineExceeded) {
		result = &ExecutionResult{Status: document.StatusTimedOut, Error: fmt.Errorf("document timed out after %v", w.config.ProcessingTimeout)}
	}

	cancelHeartbeat()

	if err := w.updateTerminalStatus(context.Background(), doc, result); err != nil {
		log.Error("Failed to update document terminal status", "error", err)
		return err
	}

	w.publishStatus(context.Background(), doc.ID, result.Status)

	w.mu.Lock()
	w.itemsProcessed++
	w.mu.Unlock()

	log.Info("Document processing complete", "status", result.Status)
	return nil
}

func (w *Worker) synthesizeResult(ctx context.Context) *ExecutionResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ExecutionResult{Status: document.StatusTimedOut, Error: fmt.Errorf("document timed out after %v", w.config.ProcessingTimeout)}
	}
	return &ExecutionResult{Status: document.StatusFailed, Error: fmt.Errorf("executor returned nil result")}
}

// claimNextDocument atomically claims the next pending document using
// SELECT ... FOR UPDATE SKIP LOCKED ordered by created_at (FIFO).
func (w *Worker) claimNextDocument(ctx context.Context) (*ent.Document, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := tx.Document.Query().
		Where(
			document.StatusEQ(document.StatusPending),
			document.DeletedAtIsNil(),
		).
		Order(ent.Asc(document.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoItemsAvailable
		}
		return nil, fmt.Errorf("failed to query pending document: %w", err)
	}

	now := time.Now()
	doc, err = doc.Update().
		SetStatus(document.StatusInProgress).
		SetPodID(w.podID).
		SetLastInteractionAt(now).
		AddReceiveCount(1).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return doc, nil
}

// runHeartbeat periodically updates last_interaction_at for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, documentID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.client.Document.UpdateOneID(documentID).
				SetLastInteractionAt(time.Now()).
				Exec(ctx); err != nil {
				slog.Warn("Heartbeat update failed", "document_id", documentID, "error", err)
			}
		}
	}
}

func (w *Worker) updateTerminalStatus(ctx context.Context, doc *ent.Document, result *ExecutionResult) error {
	update := w.client.Document.UpdateOneID(doc.ID).
		SetStatus(result.Status)
	if result.Status != document.StatusInProgress {
		update = update.ClearCurrentStep()
	}
	return update.Exec(ctx)
}

// publishStatus notifies the progress publisher, if any. Non-blocking:
// errors are logged, not propagated.
func (w *Worker) publishStatus(ctx context.Context, documentID string, status document.Status) {
	if w.progressEvents == nil {
		return
	}
	if err := w.progressEvents.PublishDocumentStatus(ctx, documentID, status); err != nil {
		slog.Warn("Failed to publish document status", "document_id", documentID, "status", status, "error", err)
	}
}

// pollInterval returns the poll duration with jitter applied.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, documentID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentDocumentID = documentID
	w.lastActivity = time.Now()
}
