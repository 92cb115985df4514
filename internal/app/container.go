// Package app wires every collaborator from configuration. Nothing is built at
// package init; callers Build a Container per process and Close it on exit.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/config"
	"github.com/docgraph/ingest/internal/documents"
	"github.com/docgraph/ingest/internal/embeddings"
	"github.com/docgraph/ingest/internal/events"
	"github.com/docgraph/ingest/internal/graph"
	"github.com/docgraph/ingest/internal/graph/memstore"
	"github.com/docgraph/ingest/internal/graph/neo4jstore"
	"github.com/docgraph/ingest/internal/graph/pgstore"
	"github.com/docgraph/ingest/internal/linking"
	"github.com/docgraph/ingest/internal/llm"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
	"github.com/docgraph/ingest/internal/ollama"
	"github.com/docgraph/ingest/internal/storage"
	"github.com/docgraph/ingest/internal/worker"
)

// Fallback models when none is configured and the model list is unreachable
const (
	fallbackTextModel   = "llama3.2"
	fallbackVisionModel = "llava"
)

// Container holds the wired application
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Store     graph.Store
	Processor *documents.Processor
	Linker    *linking.Engine
	Handler   *worker.Handler
}

// LoadConfig loads the AWS SDK configuration and then the application
// configuration, reading the secret vault through it when SECRET_ARN is set
func LoadConfig(ctx context.Context) (*config.Config, aws.Config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = config.Default().Storage.Region
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}

	cfg, err := config.Load(ctx, config.NewVaultSource(awsCfg))
	if err != nil {
		return nil, aws.Config{}, err
	}
	if cfg.Storage.Region != "" {
		awsCfg.Region = cfg.Storage.Region
	}
	return cfg, awsCfg, nil
}

// Build creates every component described by cfg
func Build(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (*Container, error) {
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	textClient := ollama.NewClient(cfg.LLM.BaseURL, ollama.WithAPIKey(cfg.LLM.APIKey))
	visionClient := ollama.NewClient(cfg.LLM.BaseURL, ollama.WithAPIKey(cfg.VisionAPIKey()))

	textModel := resolveModel(ctx, textClient, cfg.LLM.TextModel, ollama.TextModelPriority, fallbackTextModel, logger)
	visionModel := resolveModel(ctx, visionClient, cfg.LLM.VisionModel, ollama.VisionModelPriority, fallbackVisionModel, logger)

	guard := func(name string) *llm.Guard {
		gc := llm.DefaultGuardConfig(name)
		gc.RequestsPerSecond = cfg.LLM.RequestsPerSecond
		gc.Burst = cfg.LLM.Burst
		return llm.NewGuard(gc, logger)
	}

	var blobs storage.BlobStore
	s3Store := storage.NewS3(awsCfg, cfg.Storage.BucketName)
	if cfg.IsRemoteStorage() {
		blobs = s3Store
	} else {
		blobs = storage.NewLocal(cfg.Storage.LocalRoot)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.BusName != "" {
		publisher = events.NewEventBridgePublisher(awsCfg, cfg.Events.BusName, logger)
	}

	chunker, err := documents.NewChunker(
		documents.WithChunkSize(cfg.Processing.ChunkSize),
		documents.WithChunkOverlap(cfg.Processing.ChunkOverlap),
	)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	embedder := embeddings.NewTextEmbedder(cfg.LLM.BaseURL, cfg.Embeddings.Model, cfg.LLM.APIKey, cfg.Embeddings.Dimension)

	processor := documents.NewProcessor(
		documents.NewExtractor(nil, blobs,
			documents.NewDescriber(ollama.NewVisionModel(visionClient, visionModel), guard("vision"), m, logger),
			logger),
		documents.NewSynthesizer(ollama.NewTextModel(textClient, textModel), guard("text"), m, logger, cfg.Processing.SummaryChars),
		chunker,
		store,
		graph.NewLoader(store, embedder,
			graph.WithGuard(guard("embeddings")),
			graph.WithDimension(embedder.Dimension()),
			graph.WithMetrics(m),
			graph.WithLogger(logger)),
		m,
		logger,
	)

	linker := linking.New(store, m, logger)

	logger.Info("application ready",
		zap.String("backend", cfg.Graph.Backend),
		zap.String("storage", cfg.Storage.Mode),
		zap.String("config_source", cfg.LoadedFrom),
		zap.String("text_model", textModel),
		zap.String("vision_model", visionModel),
	)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Metrics:   m,
		Store:     store,
		Processor: processor,
		Linker:    linker,
		Handler:   worker.NewHandler(processor, linker, s3Store, publisher, logger),
	}, nil
}

// Close releases the store and flushes the logger
func (c *Container) Close(ctx context.Context) error {
	err := c.Store.Close(ctx)
	_ = c.Logger.Sync()
	return err
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (graph.Store, error) {
	switch cfg.Graph.Backend {
	case config.BackendNeo4j:
		return neo4jstore.New(ctx, neo4jstore.Config{
			URI:       cfg.Graph.URI,
			Username:  cfg.Graph.Username,
			Password:  cfg.Graph.Password,
			Database:  cfg.Graph.Database,
			Dimension: cfg.Embeddings.Dimension,
		}, logger)
	case config.BackendPostgres:
		return pgstore.New(ctx, pgstore.Config{
			URI:       cfg.Graph.URI,
			Username:  cfg.Graph.Username,
			Password:  cfg.Graph.Password,
			Dimension: cfg.Embeddings.Dimension,
		}, logger)
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Graph.Backend)
	}
}

// resolveModel returns configured when it is installed, otherwise the best
// installed model by priority. When the model list is unreachable it returns
// configured, or fallback when nothing is configured.
func resolveModel(ctx context.Context, client *ollama.Client, configured string, priority []string, fallback string, logger *zap.Logger) string {
	name, err := ollama.NewModelSelector(client).GetDefaultModel(ctx, configured, priority)
	if err != nil {
		if configured != "" {
			logger.Warn("model list unavailable, using configured model", zap.String("model", configured), zap.Error(err))
			return configured
		}
		logger.Warn("model selection failed, using fallback", zap.String("model", fallback), zap.Error(err))
		return fallback
	}
	if configured != "" && name != configured {
		logger.Warn("configured model not installed", zap.String("configured", configured), zap.String("model", name))
	}
	return name
}
