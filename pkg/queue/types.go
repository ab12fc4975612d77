// Package queue provides durable worker-pool infrastructure for the
// document ingestion pipeline: FIFO claim via SELECT ... FOR UPDATE SKIP
// LOCKED, heartbeat-based liveness, and orphan recovery. The actual
// per-document state machine lives in pkg/pipeline; this package only owns
// claiming, heartbeating, and handing off to an Executor. News articles are
// not queued here.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/document"
)

// Sentinel errors for queue operations.
var (
	// ErrNoItemsAvailable indicates no claimable documents are in the queue.
	ErrNoItemsAvailable = errors.New("no items available")

	// ErrAtCapacity indicates the global concurrent processing limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// Executor owns the entire per-document pipeline lifecycle: chunk, extract,
// consolidate, filter, write_graph, cleanup. The worker only handles
// claiming, heartbeat, and the terminal status write.
type Executor interface {
	Execute(ctx context.Context, doc *ent.Document) *ExecutionResult
}

// ExecutionResult is the terminal state returned by an Executor. Progress
// within a run (current_step, summaries) is written progressively to the
// database by the executor itself, not returned here.
type ExecutionResult struct {
	Status document.Status
	Error  error
}

// ProgressPublisher notifies interested listeners of a document's terminal
// or in-flight status. Implementations are expected to be non-blocking and
// to log rather than propagate publish failures.
type ProgressPublisher interface {
	PublishDocumentStatus(ctx context.Context, documentID string, status document.Status) error
}

// Registry lets a Worker register a cancel function for API-triggered
// cancellation of an in-flight document and remove it when processing ends.
type Registry interface {
	RegisterDocument(documentID string, cancel context.CancelFunc)
	UnregisterDocument(documentID string)
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveDocuments  int            `json:"active_documents"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"` // "idle" or "working"
	CurrentDocumentID string    `json:"current_document_id,omitempty"`
	ItemsProcessed    int       `json:"items_processed"`
	LastActivity      time.Time `json:"last_activity"`
}
