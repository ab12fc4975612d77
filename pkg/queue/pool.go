package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/document"
	"github.com/graphkeep/graphkeep/pkg/config"
)

// WorkerPool manages a pool of queue workers processing documents.
type WorkerPool struct {
	podID    string
	client   *ent.Client
	config   *config.QueueConfig
	executor Executor
	events   ProgressPublisher
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Cancel registry: document_id -> cancel function
	activeDocuments map[string]context.CancelFunc
	mu              sync.RWMutex
	started         bool

	orphans orphanState
}

// NewWorkerPool creates a new worker pool. events may be nil.
func NewWorkerPool(podID string, client *ent.Client, cfg *config.QueueConfig, executor Executor, events ProgressPublisher) *WorkerPool {
	return &WorkerPool{
		podID:           podID,
		client:          client,
		config:          cfg,
		executor:        executor,
		events:          events,
		workers:         make([]*Worker, 0, cfg.WorkerCount),
		stopCh:          make(chan struct{}),
		activeDocuments: make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines and the orphan detection background task.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("Starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := NewWorker(workerID, p.podID, p.client, p.config, p.executor, p, p.events)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.Info("Worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish. Workers
// finish their current document before exiting (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	active := p.getActiveDocumentIDs()
	if len(active) > 0 {
		slog.Info("Waiting for active documents to complete", "count", len(active), "document_ids", active)
	}

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("Worker pool stopped gracefully")
}

// RegisterDocument stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterDocument(documentID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeDocuments[documentID] = cancel
}

// UnregisterDocument removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterDocument(documentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeDocuments, documentID)
}

// CancelDocument triggers context cancellation for a document on this pod.
// Returns true if the document was found and cancelled on this pod.
func (p *WorkerPool) CancelDocument(documentID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeDocuments[documentID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	queueDepth, errQ := p.client.Document.Query().
		Where(
			document.StatusEQ(document.StatusPending),
			document.DeletedAtIsNil(),
		).
		Count(ctx)
	if errQ != nil {
		slog.Error("Failed to query queue depth for health check", "pod_id", p.podID, "error", errQ)
	}

	activeDocuments, errA := p.client.Document.Query().
		Where(
			document.StatusEQ(document.StatusInProgress),
			document.PodIDEQ(p.podID),
		).
		Count(ctx)
	if errA != nil {
		slog.Error("Failed to query active documents for health check", "pod_id", p.podID, "error", errA)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	dbHealthy := errQ == nil && errA == nil
	isHealthy := len(p.workers) > 0 && activeDocuments <= p.config.MaxConcurrent && dbHealthy

	p.orphans.mu.Lock()
	lastOrphanScan := p.orphans.lastOrphanScan
	orphansRecovered := p.orphans.orphansRecovered
	p.orphans.mu.Unlock()

	var dbError string
	if !dbHealthy {
		if errQ != nil {
			dbError = fmt.Sprintf("queue depth query failed: %v", errQ)
		} else if errA != nil {
			dbError = fmt.Sprintf("active documents query failed: %v", errA)
		}
	}

	return &PoolHealth{
		IsHealthy:        isHealthy,
		DBReachable:      dbHealthy,
		DBError:          dbError,
		PodID:            p.podID,
		ActiveWorkers:    activeWorkers,
		TotalWorkers:     len(p.workers),
		ActiveDocuments:  activeDocuments,
		MaxConcurrent:    p.config.MaxConcurrent,
		QueueDepth:       queueDepth,
		WorkerStats:      workerStats,
		LastOrphanScan:   lastOrphanScan,
		OrphansRecovered: orphansRecovered,
	}
}

func (p *WorkerPool) getActiveDocumentIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeDocuments))
	for id := range p.activeDocuments {
		ids = append(ids, id)
	}
	return ids
}
