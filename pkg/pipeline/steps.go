package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/ent/bucket"
	ingestchunk "github.com/graphkeep/graphkeep/pkg/ingest/chunk"
	"github.com/graphkeep/graphkeep/pkg/ingest/consolidate"
	"github.com/graphkeep/graphkeep/pkg/ingest/extract"
	"github.com/graphkeep/graphkeep/pkg/ingest/filter"
	"github.com/graphkeep/graphkeep/pkg/ingest/graphwriter"
)

// chunkTTL and recordSetTTL/bucketTTL are the TTLs assigned to intermediate
// pipeline artifacts.
const (
	chunkTTL     = 2 * time.Hour
	recordSetTTL = 2 * time.Hour
	bucketTTL    = 2 * time.Hour
)

func (e *Executor) runChunkStep(ctx context.Context, doc *ent.Document, pages []string) ([]ingestchunk.Chunk, *ingestchunk.Summary, error) {
	if err := e.setStep(ctx, doc, StepChunk); err != nil {
		return nil, nil, fmt.Errorf("record chunk step: %w", err)
	}

	chunks := ingestchunk.SplitDocument(pages)
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("document produced no chunks")
	}

	source := strings.ToUpper(filepath.Base(doc.BlobKey))

	var summary *ingestchunk.Summary
	err := withRetry(func() error {
		var genErr error
		summary, genErr = e.chunker.GenerateDocumentSummary(ctx, chunks, source)
		return genErr
	})
	if err != nil {
		return nil, nil, fmt.Errorf("generate document summary: %w", err)
	}

	now := time.Now()
	for _, c := range chunks {
		if err := e.client.Chunk.Create().
			SetID(c.ID).
			SetDocumentID(doc.ID).
			SetStartPage(c.StartPage).
			SetEndPage(c.EndPage).
			SetText(c.Text).
			SetSource(source).
			SetSummary(summary.Short).
			SetCreatedAt(now).
			SetExpiresAt(now.Add(chunkTTL)).
			Exec(ctx); err != nil {
			return nil, nil, fmt.Errorf("persist chunk %s: %w", c.ID, err)
		}
	}

	if err := e.client.Document.UpdateOneID(doc.ID).
		SetSummaryFull(summary.Full).
		SetSummaryShort(summary.Short).
		Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("persist document summary: %w", err)
	}

	return chunks, summary, nil
}

// extractResult pairs a fan-out attempt with its originating chunk so a
// skipped chunk (retries exhausted) doesn't abort the whole document.
type extractResult struct {
	recordSet *extract.RecordSet
	err       error
}

func (e *Executor) runExtractStep(ctx context.Context, doc *ent.Document, chunks []ingestchunk.Chunk, summary *ingestchunk.Summary) ([]*extract.RecordSet, error) {
	if err := e.setStep(ctx, doc, StepExtract); err != nil {
		return nil, fmt.Errorf("record extract step: %w", err)
	}

	results := make([]extractResult, len(chunks))
	var wg sync.WaitGroup
	for i, c := range chunks {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, err := e.extractor.ExtractChunk(ctx, summary.Short, c, strings.ToUpper(filepath.Base(doc.BlobKey)))
			results[i] = extractResult{recordSet: rs, err: err}
		}()
	}
	wg.Wait()

	now := time.Now()
	var recordSets []*extract.RecordSet
	for i, r := range results {
		if r.err != nil {
			// A single chunk's extraction failure is skipped and logged; it
			// does not abort the document run.
			continue
		}
		recordSets = append(recordSets, r.recordSet)

		if err := e.client.RecordSet.Create().
			SetID(uuid.NewString()).
			SetDocumentID(doc.ID).
			SetChunkID(chunks[i].ID).
			SetProducts(r.recordSet.Products).
			SetCustomers(r.recordSet.Customers).
			SetSuppliersOrPartners(r.recordSet.SuppliersOrPartners).
			SetCompetitors(r.recordSet.Competitors).
			SetDirectors(r.recordSet.Directors).
			SetCreatedAt(now).
			SetExpiresAt(now.Add(recordSetTTL)).
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("persist record set for chunk %s: %w", chunks[i].ID, err)
		}
	}

	if len(recordSets) == 0 {
		return nil, fmt.Errorf("every chunk failed extraction")
	}
	return recordSets, nil
}

type filteredBuckets struct {
	Customers           map[string]map[string]any
	SuppliersOrPartners map[string]map[string]any
	Competitors         map[string]map[string]any
	Directors           map[string]map[string]any
}

func (e *Executor) runFilterStep(ctx context.Context, doc *ent.Document, buckets consolidate.Buckets) (*filteredBuckets, error) {
	if err := e.setStep(ctx, doc, StepFilter); err != nil {
		return nil, fmt.Errorf("record filter step: %w", err)
	}

	type job struct {
		kind filter.Kind
		raw  map[string]map[string]any
	}
	jobs := []job{
		{filter.KindCustomers, buckets.Customers},
		{filter.KindSuppliers, buckets.SuppliersOrPartners},
		{filter.KindCompetitors, buckets.Competitors},
		{filter.KindDirectors, buckets.Directors},
	}

	result := &filteredBuckets{}
	now := time.Now()
	for _, j := range jobs {
		bucketKind := bucketKindFor(j.kind)
		if err := e.persistBucket(ctx, doc.ID, bucketKind, bucket.StageConsolidated, j.raw, now); err != nil {
			return nil, err
		}

		var filtered map[string]map[string]any
		err := withRetry(func() error {
			var filterErr error
			filtered, filterErr = e.filter.FilterBucket(ctx, j.kind, j.raw)
			return filterErr
		})
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", j.kind, err)
		}

		if err := e.persistBucket(ctx, doc.ID, bucketKind, bucket.StageFiltered, filtered, now); err != nil {
			return nil, err
		}

		switch j.kind {
		case filter.KindCustomers:
			result.Customers = filtered
		case filter.KindSuppliers:
			result.SuppliersOrPartners = filtered
		case filter.KindCompetitors:
			result.Competitors = filtered
		case filter.KindDirectors:
			result.Directors = filtered
		}
	}

	return result, nil
}

func (e *Executor) persistBucket(ctx context.Context, documentID string, kind bucket.Kind, stage bucket.Stage, data map[string]map[string]any, now time.Time) error {
	untyped := make(map[string]any, len(data))
	for k, v := range data {
		untyped[k] = v
	}
	return e.client.Bucket.Create().
		SetID(uuid.NewString()).
		SetDocumentID(documentID).
		SetKind(kind).
		SetStage(stage).
		SetData(untyped).
		SetCreatedAt(now).
		SetExpiresAt(now.Add(bucketTTL)).
		Exec(ctx)
}

// bucketKindFor maps the filter package's classification kind onto the
// bucket table's stored enum value; the two are named identically but kept
// as distinct types since a Bucket row outlives any one filter pass.
func bucketKindFor(k filter.Kind) bucket.Kind {
	switch k {
	case filter.KindCustomers:
		return bucket.KindCustomers
	case filter.KindSuppliers:
		return bucket.KindSuppliersOrPartners
	case filter.KindCompetitors:
		return bucket.KindCompetitors
	case filter.KindDirectors:
		return bucket.KindDirectors
	default:
		return bucket.KindCustomers
	}
}

func (e *Executor) runWriteGraphStep(ctx context.Context, doc *ent.Document, summary *ingestchunk.Summary, filtered *filteredBuckets) error {
	if err := e.setStep(ctx, doc, StepWriteGraph); err != nil {
		return fmt.Errorf("record write_graph step: %w", err)
	}

	mainEntity, ok := summary.Full["MAIN_ENTITY"].(map[string]any)
	if !ok {
		return fmt.Errorf("document summary missing MAIN_ENTITY")
	}
	name, _ := mainEntity["NAME"].(string)
	if name == "" {
		return fmt.Errorf("document summary's MAIN_ENTITY missing NAME")
	}

	attrs := map[string]string{}
	for k, v := range mainEntity {
		if k == "NAME" {
			continue
		}
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}

	return withRetry(func() error {
		_, err := e.writer.WriteGraph(ctx, graphwriter.Buckets{
			MainEntityName:      name,
			MainAttrs:           attrs,
			Customers:           filtered.Customers,
			SuppliersOrPartners: filtered.SuppliersOrPartners,
			Competitors:         filtered.Competitors,
			Directors:           filtered.Directors,
		})
		return err
	})
}
