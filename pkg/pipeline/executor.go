// Package pipeline implements the orchestrator: the declarative state
// machine wiring the Chunker, Chunk Extractor, Consolidator, Filter, and
// Graph Writer into one document-ingestion run, with per-step retry and a
// terminal failure branch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/document"
	"github.com/graphkeep/graphkeep/pkg/blobstore"
	"github.com/graphkeep/graphkeep/pkg/ingest/chunk"
	"github.com/graphkeep/graphkeep/pkg/ingest/consolidate"
	"github.com/graphkeep/graphkeep/pkg/ingest/extract"
	"github.com/graphkeep/graphkeep/pkg/ingest/filter"
	"github.com/graphkeep/graphkeep/pkg/ingest/graphwriter"
	"github.com/graphkeep/graphkeep/pkg/queue"
)

// Step names persisted to Document.CurrentStep (ent/schema/document.go).
const (
	StepChunk       = "chunk"
	StepExtract     = "extract"
	StepConsolidate = "consolidate"
	StepFilter      = "filter"
	StepWriteGraph  = "write_graph"
	StepCleanup     = "cleanup"
)

// totalSteps matches ProcessingStatus.total_step_count for a document run:
// chunk+summarize, extract+consolidate, filter, write_graph.
const totalSteps = 4

// retryAttempts, retryInterval and retryBackoff implement the orchestrator's
// uniform per-step retry policy: interval 1s, max 3 attempts, backoff x2.
const (
	retryAttempts = 3
	retryInterval = time.Second
	retryBackoff  = 2
)

// Executor wires the chunker, extractor, consolidator, filter, and graph
// writer into one document run. Satisfies queue.Executor.
type Executor struct {
	client     *ent.Client
	blobs      blobstore.Store
	chunker    *chunk.Generator
	extractor  *extract.Extractor
	filter     *filter.Filter
	writer     *graphwriter.Writer
}

// NewExecutor builds an Executor from its component dependencies.
func NewExecutor(client *ent.Client, blobs blobstore.Store, chunker *chunk.Generator, extractor *extract.Extractor, flt *filter.Filter, writer *graphwriter.Writer) *Executor {
	return &Executor{client: client, blobs: blobs, chunker: chunker, extractor: extractor, filter: flt, writer: writer}
}

// Execute drives one document through chunk -> extract (fan-out) ->
// consolidate -> filter (fan-out) -> write_graph -> cleanup. Every step
// retries per the orchestrator's uniform policy; a step that exhausts its
// retries routes to the terminal failure branch: the document is marked
// failed, its processing status record gets an ended_at and a truncated
// error_message, and the blob is left in place for redelivery instead of
// being deleted.
func (e *Executor) Execute(ctx context.Context, doc *ent.Document) *queue.ExecutionResult {
	log := slog.With("document_id", doc.ID)

	pages, err := e.blobs.DownloadPages(ctx, doc.BlobBucket, doc.BlobKey)
	if err != nil {
		return e.fail(ctx, doc, fmt.Errorf("download blob: %w", err))
	}

	chunks, summary, err := e.runChunkStep(ctx, doc, pages)
	if err != nil {
		return e.fail(ctx, doc, err)
	}
	if err := e.advanceStatus(ctx, doc); err != nil {
		log.Warn("failed to advance processing status", "error", err)
	}

	recordSets, err := e.runExtractStep(ctx, doc, chunks, summary)
	if err != nil {
		return e.fail(ctx, doc, err)
	}

	buckets := consolidate.Consolidate(recordSets)
	if err := e.setStep(ctx, doc, StepConsolidate); err != nil {
		log.Warn("failed to record step", "error", err)
	}
	if err := e.advanceStatus(ctx, doc); err != nil {
		log.Warn("failed to advance processing status", "error", err)
	}

	filtered, err := e.runFilterStep(ctx, doc, buckets)
	if err != nil {
		return e.fail(ctx, doc, err)
	}
	if err := e.advanceStatus(ctx, doc); err != nil {
		log.Warn("failed to advance processing status", "error", err)
	}

	if err := e.runWriteGraphStep(ctx, doc, summary, filtered); err != nil {
		return e.fail(ctx, doc, err)
	}
	if err := e.advanceStatus(ctx, doc); err != nil {
		log.Warn("failed to advance processing status", "error", err)
	}

	if err := e.setStep(ctx, doc, StepCleanup); err != nil {
		log.Warn("failed to record step", "error", err)
	}
	if err := withRetry(func() error { return e.blobs.Delete(ctx, doc.BlobBucket, doc.BlobKey) }); err != nil {
		log.Warn("failed to delete source blob after successful run", "error", err)
	}

	if err := e.client.ProcessingStatus.UpdateOneID(doc.ProcessingStatusID).
		SetDatetimeEnded(time.Now()).
		Save(ctx); err != nil {
		log.Warn("failed to close processing status", "error", err)
	}

	return &queue.ExecutionResult{Status: document.StatusCompleted}
}

func (e *Executor) setStep(ctx context.Context, doc *ent.Document, step string) error {
	return e.client.Document.UpdateOneID(doc.ID).SetCurrentStep(step).Exec(ctx)
}

func (e *Executor) advanceStatus(ctx context.Context, doc *ent.Document) error {
	return e.client.ProcessingStatus.UpdateOneID(doc.ProcessingStatusID).
		AddCompletedStepCount(1).
		Exec(ctx)
}

// fail marks the document and its shared processing status record failed,
// per the orchestrator's terminal compensation branch. The blob is
// intentionally left untouched so it can be redelivered.
func (e *Executor) fail(ctx context.Context, doc *ent.Document, cause error) *queue.ExecutionResult {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if err := e.client.ProcessingStatus.UpdateOneID(doc.ProcessingStatusID).
		SetDatetimeEnded(time.Now()).
		SetErrorMessage(msg).
		Exec(ctx); err != nil {
		slog.Error("failed to record processing status failure", "document_id", doc.ID, "error", err)
	}
	return &queue.ExecutionResult{Status: document.StatusFailed, Error: cause}
}

// withRetry runs op up to retryAttempts times, sleeping retryInterval
// (doubling each attempt) between failures.
func withRetry(op func() error) error {
	var lastErr error
	interval := retryInterval
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < retryAttempts {
			time.Sleep(interval)
			interval *= retryBackoff
		}
	}
	return lastErr
}
