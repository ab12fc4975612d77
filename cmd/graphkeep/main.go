// graphkeep orchestrator server - runs the document ingestion pipeline and
// news path worker pools and exposes the Progress API over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/graphkeep/graphkeep/pkg/api"
	"github.com/graphkeep/graphkeep/pkg/blobstore"
	"github.com/graphkeep/graphkeep/pkg/cleanup"
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
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL, schema migrated")

	providerName := getEnv("LLM_PROVIDER", "bedrock-default")
	promptStore := llmgateway.NewSavedPromptStore(dbClient.DB(), cfg.Retention.PromptLogTTL)
	gw, err := llmgateway.NewClient(getEnv("LLM_GATEWAY_ADDR", "localhost:50051"), cfg.LLMProviderRegistry, providerName, promptStore)
	if err != nil {
		log.Fatalf("failed to build LLM gateway client: %v", err)
	}

	graphStore := graph.NewStore(dbClient.DB())
	candidateCache, err := graph.NewCandidateCache()
	if err != nil {
		log.Fatalf("failed to build graph candidate cache: %v", err)
	}
	defer candidateCache.Close()
	disambiguator := graph.NewLLMDisambiguator(gw)
	g := graph.New(graphStore, disambiguator, candidateCache)

	blobRoot := getEnv("BLOB_STORE_DIR", "./deploy/blobs")
	blobs := blobstore.NewFSStore(blobRoot)

	stoplistExpr := getEnv("FILTER_STOPLIST_EXPR", "")
	flt, err := filter.NewFilter(gw, stoplistExpr)
	if err != nil {
		log.Fatalf("failed to build filter: %v", err)
	}

	executor := pipeline.NewExecutor(
		dbClient.Client,
		blobs,
		chunk.NewGenerator(gw),
		extract.NewExtractor(gw),
		flt,
		graphwriter.NewWriter(g),
	)

	eventPublisher := events.NewEventPublisher(dbClient.DB())

	podID := getEnv("POD_ID", "graphkeep-0")
	pool := queue.NewWorkerPool(podID, dbClient.Client, cfg.Queue, executor, eventPublisher)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer pool.Stop()

	settingsStore := settings.NewStore(dbClient.DB())
	newsProc := news.NewProcessor(gw, g, settingsStore)
	newsStore := news.NewStore(dbClient.Client)

	cleanupSvc := cleanup.NewService(cfg.Retention, dbClient.Client, dbClient.DB())
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(dbClient, pool, newsProc, newsStore)
	router := gin.Default()
	server.RegisterRoutes(router)

	slog.Info("starting graphkeep", "http_port", httpPort, "config_dir", *configDir, "pod_id", podID)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start HTTP server: %v", err)
	}
}
