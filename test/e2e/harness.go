// Package e2e provides end-to-end test infrastructure for the graphkeep
// ingestion and news pipelines.
package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/graphkeep/graphkeep/ent"
	"github.com/graphkeep/graphkeep/pkg/api"
	"github.com/graphkeep/graphkeep/pkg/blobstore"
	"github.com/graphkeep/graphkeep/pkg/config"
	"github.com/graphkeep/graphkeep/pkg/database"
	"github.com/graphkeep/graphkeep/pkg/events"
	"github.com/graphkeep/graphkeep/pkg/graph"
	"github.com/graphkeep/graphkeep/pkg/ingest/chunk"
	"github.com/graphkeep/graphkeep/pkg/ingest/extract"
	"github.com/graphkeep/graphkeep/pkg/ingest/filter"
	"github.com/graphkeep/graphkeep/pkg/ingest/graphwriter"
	"github.com/graphkeep/graphkeep/pkg/llmgateway"
	"github.com/graphkeep/graphkeep/pkg/news"
	"github.com/graphkeep/graphkeep/pkg/pipeline"
	"github.com/graphkeep/graphkeep/pkg/queue"
	"github.com/graphkeep/graphkeep/pkg/settings"
	testdb "github.com/graphkeep/graphkeep/test/database"
)

// TestApp boots a complete graphkeep instance for e2e testing: a real
// Postgres schema, a fake generation sidecar standing in for the LLM
// gateway's gRPC backend, a filesystem blob store rooted at a temp
// directory, the document worker pool, the news processor, and the HTTP
// Progress API, all wired the way cmd/graphkeep/main.go wires them.
type TestApp struct {
	Config   *config.QueueConfig
	DBClient *database.Client
	EntClient *ent.Client

	LLM   *ScriptedLLMServer
	Blobs *blobstore.FSStore
	Graph *graph.Graph

	WorkerPool *queue.WorkerPool
	NewsProc   *news.Processor
	NewsStore  *news.Store
	Server     *api.Server

	BaseURL string
	HTTP    *http.Client

	blobRoot string
	t        *testing.T
}

type testAppConfig struct {
	workerCount   int
	maxConcurrent int
	stoplistExpr  string
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithWorkerCount sets the document worker pool's goroutine count.
func WithWorkerCount(n int) TestAppOption {
	return func(c *testAppConfig) { c.workerCount = n }
}

// WithStoplistExpr sets the filter's expr-lang pre-screen expression.
func WithStoplistExpr(expr string) TestAppOption {
	return func(c *testAppConfig) { c.stoplistExpr = expr }
}

// NewTestApp creates and starts a full graphkeep test instance. Shutdown is
// registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{workerCount: 1}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.maxConcurrent == 0 {
		tc.maxConcurrent = tc.workerCount
	}

	ctx := context.Background()

	dbClient := testdb.NewTestClient(t)
	entClient := dbClient.Client

	llmServer := NewScriptedLLMServer(t)

	providers := testProviderRegistry(t)
	promptStore := llmgateway.NewSavedPromptStore(dbClient.DB(), time.Hour)
	gw, err := llmgateway.NewClient(llmServer.Addr, providers, "test-provider", promptStore)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	blobRoot := t.TempDir()
	blobs := blobstore.NewFSStore(blobRoot)

	graphStore := graph.NewStore(dbClient.DB())
	cache, err := graph.NewCandidateCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	disambiguator := graph.NewLLMDisambiguator(gw)
	g := graph.New(graphStore, disambiguator, cache)

	flt, err := filter.NewFilter(gw, tc.stoplistExpr)
	require.NoError(t, err)

	executor := pipeline.NewExecutor(entClient, blobs, chunk.NewGenerator(gw), extract.NewExtractor(gw), flt, graphwriter.NewWriter(g))

	eventPublisher := events.NewEventPublisher(dbClient.DB())

	queueCfg := &config.QueueConfig{
		WorkerCount:             tc.workerCount,
		MaxConcurrent:           tc.maxConcurrent,
		PollInterval:            50 * time.Millisecond,
		PollIntervalJitter:      20 * time.Millisecond,
		ProcessingTimeout:       30 * time.Second,
		GracefulShutdownTimeout: 5 * time.Second,
		HeartbeatInterval:       2 * time.Second,
		OrphanDetectionInterval: time.Minute,
		OrphanThreshold:         time.Minute,
	}

	podID := fmt.Sprintf("e2e-%s", t.Name())
	pool := queue.NewWorkerPool(podID, entClient, queueCfg, executor, eventPublisher)
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(pool.Stop)

	settingsStore := settings.NewStore(dbClient.DB())
	newsProc := news.NewProcessor(gw, g, settingsStore)
	newsStore := news.NewStore(entClient)

	server := api.NewServer(dbClient, pool, newsProc, newsStore)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	server.RegisterRoutes(router)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpServer := &http.Server{Handler: router}
	go func() { _ = httpServer.Serve(ln) }()
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	})

	return &TestApp{
		Config:     queueCfg,
		DBClient:   dbClient,
		EntClient:  entClient,
		LLM:        llmServer,
		Blobs:      blobs,
		Graph:      g,
		WorkerPool: pool,
		NewsProc:   newsProc,
		NewsStore:  newsStore,
		Server:     server,
		BaseURL:    fmt.Sprintf("http://%s", ln.Addr().String()),
		HTTP:       &http.Client{Timeout: 10 * time.Second},
		blobRoot:   blobRoot,
		t:          t,
	}
}

// testProviderRegistry builds the single test LLM provider every harness
// and scenario test dials the fake generation sidecar through.
func testProviderRegistry(t *testing.T) *config.LLMProviderRegistry {
	t.Helper()
	return config.NewLLMProviderRegistry(map[string]*config.LLMProviderConfig{
		"test-provider": {
			Type:            config.LLMProviderTypeBedrock,
			Model:           "test-model",
			Temperature:     0,
			TopP:            1,
			MaxOutputTokens: 4000,
			RequestTimeout:  10 * time.Second,
		},
	})
}

// PutBlob writes text unchanged as the blob content at bucket/key; the
// blob store later splits it into pages on the form-feed character.
func (a *TestApp) PutBlob(bucket, key, text string) {
	a.t.Helper()
	dir := filepath.Join(a.blobRoot, bucket)
	require.NoError(a.t, os.MkdirAll(dir, 0o755))
	require.NoError(a.t, os.WriteFile(filepath.Join(dir, key), []byte(text), 0o644))
}

// WaitForStatus polls the given ProcessingStatus row until datetime_ended is
// set, or fails the test when timeout elapses.
func (a *TestApp) WaitForStatus(processingStatusID string, timeout time.Duration) *ent.ProcessingStatus {
	a.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		ps, err := a.EntClient.ProcessingStatus.Get(context.Background(), processingStatusID)
		require.NoError(a.t, err)
		if ps.DatetimeEnded != nil {
			return ps
		}
		if time.Now().After(deadline) {
			a.t.Fatalf("timed out waiting for processing status %s to finish: %+v", processingStatusID, ps)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
