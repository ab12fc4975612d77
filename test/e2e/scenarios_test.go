package e2e

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkeep/graphkeep/pkg/ingest/chunk"
	"github.com/graphkeep/graphkeep/pkg/llmgateway"
	pb "github.com/graphkeep/graphkeep/proto"
)

const (
	summaryRouteKey = "summary"
	extractRouteKey = "extract"
	filterRouteKey  = "filter"
)

// classifyByPrompt routes a generation request by matching a fragment of
// its system prompt against the three pipeline call sites that share one
// fake sidecar: GenerateDocumentSummary, ExtractChunk, and FilterBucket.
// Needed whenever more than one document runs concurrently, since the
// global arrival order of their calls at the transport is not otherwise
// predictable (see E6).
func classifyByPrompt(req *pb.GenerateRequest) string {
	switch {
	case strings.Contains(req.SystemPrompt, "summarize a business document"):
		return summaryRouteKey
	case strings.Contains(req.SystemPrompt, "extract structured business records"):
		return extractRouteKey
	case strings.Contains(req.SystemPrompt, "candidate customer name"):
		return filterRouteKey
	default:
		return ""
	}
}

func summaryResponse(mainEntityName string) ScriptedLLMEntry {
	return ScriptedLLMEntry{Text: `<results>{"MAIN_ENTITY":{"NAME":"` + mainEntityName + `"}}</results>`}
}

func extractOneCustomerResponse(customerName string) ScriptedLLMEntry {
	return ScriptedLLMEntry{Text: `<results>{"products":[],"customers":{"` + customerName + `":{}},` +
		`"suppliers_or_partners":{},"competitors":{},"directors":{}}</results>`}
}

func extractTwoCustomersResponse(keep, drop string) ScriptedLLMEntry {
	return ScriptedLLMEntry{Text: `<results>{"products":[],"customers":{"` + keep + `":{},"` + drop + `":{}},` +
		`"suppliers_or_partners":{},"competitors":{},"directors":{}}</results>`}
}

func filterKeepResponse(keys ...string) ScriptedLLMEntry {
	var b strings.Builder
	b.WriteString(`<results>[`)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"` + k + `"`)
	}
	b.WriteString(`]</results>`)
	return ScriptedLLMEntry{Text: b.String()}
}

func edgeCount(t *testing.T, a *TestApp) int {
	t.Helper()
	var n int
	require.NoError(t, a.DBClient.DB().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM graph_edges`).Scan(&n))
	return n
}

func vertexCount(t *testing.T, a *TestApp, name string) int {
	t.Helper()
	entities, err := a.Graph.GetEntities(context.Background())
	require.NoError(t, err)
	n := 0
	for _, e := range entities {
		if strings.Contains(e.Name, name) {
			n++
		}
	}
	return n
}

func postDocument(t *testing.T, a *TestApp, bucket, key string) (documentID, statusID string) {
	t.Helper()
	resp, err := a.HTTP.Post(a.BaseURL+"/documents", "application/json",
		strings.NewReader(`{"blob_bucket":"`+bucket+`","blob_key":"`+key+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 202, resp.StatusCode)

	var body struct {
		DocumentID         string `json:"document_id"`
		ProcessingStatusID string `json:"processing_status_id"`
	}
	require.NoError(t, jsonDecode(resp.Body, &body))
	return body.DocumentID, body.ProcessingStatusID
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// E1: a fresh blob mentioning a main entity and one customer produces a
// COMPANY vertex for the main entity, at least one edge to the discovered
// customer, and a processing status that reaches 4/4.
func TestE1_NewDocumentCreatesVertexAndEdges(t *testing.T) {
	app := NewTestApp(t)

	app.LLM.Push(summaryResponse("ACME CORP"))
	app.LLM.Push(extractOneCustomerResponse("GLOBAL WIDGETS INC"))
	app.LLM.Push(filterKeepResponse("GLOBAL WIDGETS INC"))

	app.PutBlob("filings", "acme_10k.txt", "ACME CORP 10-K. Customer: Global Widgets Inc.")
	_, statusID := postDocument(t, app, "filings", "acme_10k.txt")

	ps := app.WaitForStatus(statusID, 10*time.Second)
	assert.Equal(t, 4, ps.CompletedStepCount)
	assert.Equal(t, 4, ps.TotalStepCount)
	assert.Nil(t, ps.ErrorMessage)

	assert.Equal(t, 1, vertexCount(t, app, "ACME CORP"))
	assert.Equal(t, 1, vertexCount(t, app, "GLOBAL WIDGETS INC"))
	assert.GreaterOrEqual(t, edgeCount(t, app), 1)
}

// E2: re-queuing the identical blob resolves to the same two vertices and
// the same edge — zero net graph deltas.
func TestE2_ReingestionIsIdempotent(t *testing.T) {
	app := NewTestApp(t)

	for i := 0; i < 2; i++ {
		app.LLM.Push(summaryResponse("ACME CORP"))
		app.LLM.Push(extractOneCustomerResponse("GLOBAL WIDGETS INC"))
		app.LLM.Push(filterKeepResponse("GLOBAL WIDGETS INC"))
	}
	app.PutBlob("filings", "acme_10k.txt", "ACME CORP 10-K. Customer: Global Widgets Inc.")

	_, status1 := postDocument(t, app, "filings", "acme_10k.txt")
	app.WaitForStatus(status1, 10*time.Second)
	entitiesAfterFirst, err := app.Graph.GetEntities(context.Background())
	require.NoError(t, err)
	edgesAfterFirst := edgeCount(t, app)

	_, status2 := postDocument(t, app, "filings", "acme_10k.txt")
	app.WaitForStatus(status2, 10*time.Second)
	entitiesAfterSecond, err := app.Graph.GetEntities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(entitiesAfterFirst), len(entitiesAfterSecond), "vertex count must not grow on re-ingestion")
	assert.Equal(t, edgesAfterFirst, edgeCount(t, app), "edge count must not grow on re-ingestion")
}

// E3: a news article mentioning an entity that resolves to an existing
// INTERESTED=YES vertex persists a news record with interested=YES and
// exactly that one entity in interested_entities.
func TestE3_NewsArticleFindsInterestedEntity(t *testing.T) {
	app := NewTestApp(t)

	ctx := context.Background()
	vertexID, err := app.Graph.GetOrCreateID(ctx, "COMPANY", "Advanced Micro Devices", map[string]string{"INDUSTRY": "Semiconductors"}, nil)
	require.NoError(t, err)
	require.NoError(t, app.Graph.UpdateInterested(ctx, vertexID, true))

	app.LLM.Push(ScriptedLLMEntry{Text: `<entities>[{"NAME":"Advanced Micro Devices","LABEL":"COMPANY",` +
		`"INDUSTRY":"Semiconductors","SENTIMENT":"POSITIVE","SENTIMENT_EXPLANATION":"strong quarter",` +
		`"RELATIONSHIPS":[]}]</entities>`})
	app.LLM.Push(ScriptedLLMEntry{Text: `<result>Improved outlook for AMD following strong earnings.</result><impact>POSITIVE</impact>`})

	resp, err := app.HTTP.Post(app.BaseURL+"/news", "application/json", strings.NewReader(
		`{"date":"2026-07-30","title":"AMD posts record quarter","text":"AMD reported record earnings today.","url":"https://example.test/amd"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 202, resp.StatusCode)

	var body struct {
		ProcessingStatusID string `json:"processing_status_id"`
	}
	require.NoError(t, jsonDecode(resp.Body, &body))
	app.WaitForStatus(body.ProcessingStatusID, 10*time.Second)

	records, err := app.EntClient.NewsRecord.Query().All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "YES", string(rec.Interested))
	require.Len(t, rec.InterestedEntities, 1)
	assert.Contains(t, rec.InterestedEntities[0], "ADVANCED MICRO DEVICES")
}

// E4: the filter drops a hallucinated, non-entity customer candidate — no
// vertex is created for it even though extraction surfaced it.
func TestE4_FilterDropsNonEntityCandidate(t *testing.T) {
	app := NewTestApp(t)

	app.LLM.Push(summaryResponse("ACME CORP"))
	app.LLM.Push(extractTwoCustomersResponse("GLOBAL WIDGETS INC", "THE TEAM"))
	app.LLM.Push(filterKeepResponse("GLOBAL WIDGETS INC"))

	app.PutBlob("filings", "acme_10k.txt", "ACME CORP 10-K. Thanks to the team and our customer Global Widgets Inc.")
	_, statusID := postDocument(t, app, "filings", "acme_10k.txt")
	app.WaitForStatus(statusID, 10*time.Second)

	assert.Equal(t, 1, vertexCount(t, app, "GLOBAL WIDGETS INC"))
	assert.Equal(t, 0, vertexCount(t, app, "THE TEAM"))
}

// E5: a summary input that starts over the 40-chunk cap shrinks 40 -> 30 ->
// 22 chunks before succeeding, exercising pkg/ingest/chunk's own shrink
// loop stacked on top of pkg/llmgateway's unmodified generic-error retry
// policy (four attempts per shrink step before an error surfaces). This
// test's wall-clock time is dominated by that retry policy's real jittered
// sleeps — expect roughly one to a few minutes, not a fast unit test.
func TestE5_OversizeSummaryShrinksUntilItFits(t *testing.T) {
	llm := NewScriptedLLMServer(t)
	providers := testProviderRegistry(t)
	store := llmgateway.NewSavedPromptStore(nil, time.Hour)
	gw, err := llmgateway.NewClient(llm.Addr, providers, "test-provider", store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	for shrinkStep := 0; shrinkStep < 2; shrinkStep++ {
		for attempt := 0; attempt < 4; attempt++ {
			llm.Push(ScriptedLLMEntry{Err: "input is too long for requested model"})
		}
	}
	llm.Push(summaryResponse("ACME CORP"))

	chunks := make([]chunk.Chunk, 42)
	for i := range chunks {
		chunks[i] = chunk.Chunk{ID: uuid.NewString(), Text: "page text"}
	}

	gen := chunk.NewGenerator(gw)
	summary, err := gen.GenerateDocumentSummary(context.Background(), chunks, "acme_10k.pdf")
	require.NoError(t, err)

	mainEntity, _ := summary.Full["MAIN_ENTITY"].(map[string]any)
	require.NotNil(t, mainEntity)
	assert.Equal(t, "ACME CORP", mainEntity["NAME"])
	assert.Equal(t, 9, llm.CallCount(), "two failed shrink steps (4 attempts each) plus one successful call")
}

// E6: two workers process two different documents that both mention the
// same new entity concurrently. The final graph must contain either one
// or two vertices for that entity — merging across a race is eventual,
// not guaranteed.
func TestE6_ConcurrentDocumentsRaceOnNewEntity(t *testing.T) {
	app := NewTestApp(t, WithWorkerCount(2))
	app.LLM.Classify(classifyByPrompt)

	for i := 0; i < 2; i++ {
		app.LLM.PushRoute(summaryRouteKey, summaryResponse("RACE MAIN"))
		app.LLM.PushRoute(extractRouteKey, extractOneCustomerResponse("NEW ENTITY INC"))
		app.LLM.PushRoute(filterRouteKey, filterKeepResponse("NEW ENTITY INC"))
	}

	app.PutBlob("filings", "doc1.txt", "RACE MAIN 10-K. Customer: New Entity Inc.")
	app.PutBlob("filings", "doc2.txt", "RACE MAIN 10-K. Customer: New Entity Inc.")

	_, status1 := postDocument(t, app, "filings", "doc1.txt")
	_, status2 := postDocument(t, app, "filings", "doc2.txt")

	app.WaitForStatus(status1, 15*time.Second)
	app.WaitForStatus(status2, 15*time.Second)

	count := vertexCount(t, app, "NEW ENTITY INC")
	assert.True(t, count == 1 || count == 2, "expected 1 or 2 vertices for the raced entity, got %d", count)
}
