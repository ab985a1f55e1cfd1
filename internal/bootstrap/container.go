package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"doc-rag-be/internal/config"
	"doc-rag-be/internal/controller"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/unitofwork"
	"doc-rag-be/internal/service"
	"doc-rag-be/pkg/chunking"
	"doc-rag-be/pkg/embedding"
	"doc-rag-be/pkg/extraction"
	"doc-rag-be/pkg/images"
	"doc-rag-be/pkg/lifecycle"
	pktNats "doc-rag-be/pkg/nats"
	"doc-rag-be/pkg/progress"
	"doc-rag-be/pkg/queue"
	"doc-rag-be/pkg/retrieval"
	"doc-rag-be/pkg/vectorstore"
)

type Container struct {
	// Controllers
	DocumentController  controller.IDocumentController
	RetrievalController controller.IRetrievalController

	// Background collaborators (exposed for main.go to run)
	WorkerPool *queue.WorkerPool
	Janitor    *queue.Janitor
	JobQueue   *queue.Queue

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// embedding providers, primary first
	var providers []embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "gemini":
		providers = append(providers, embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey))
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	case "jina":
		providers = append(providers, embedding.NewJinaProvider(cfg.Ai.JinaAPIKey))
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	default:
		providers = append(providers, embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel))
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}
	if cfg.Ai.EmbeddingProvider != "gemini" && cfg.Ai.GeminiAPIKey != "" {
		providers = append(providers, embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey))
		log.Printf("[INFO] Gemini configured as embedding fallback")
	}
	generator := embedding.NewGenerator(sysLogger, cfg.Ai.EmbeddingDimension, cfg.Pipeline.EmbedBatchSize, providers...)

	// infrastructure, degraded when absent
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.App.RedisURL); err == nil {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Redis unreachable, cross-instance progress disabled: %v", err)
			rdb = nil
		}
	} else {
		log.Printf("[WARN] Malformed redis URL: %v", err)
	}

	hub := progress.NewHub(natsPub, rdb, sysLogger)

	// pipeline stages
	chain := extraction.DefaultChain(sysLogger)
	chunker := chunking.NewEngine()
	store := vectorstore.NewStore(uowFactory, sysLogger)
	imageExtractor := images.NewExtractor(cfg.Pipeline.MaxImages, sysLogger)

	files, err := lifecycle.NewManager(
		cfg.App.DocumentsRoot,
		cfg.Cleanup.Enabled,
		cfg.Cleanup.Delay,
		cfg.Cleanup.KeepFailed,
		cfg.Cleanup.MaxRetries,
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Invalid documents root: %v", err)
	}

	// queue
	registry := queue.NewRegistry()
	jobQueue := queue.NewQueue(pubSub, cfg.Pipeline.TopicName, uowFactory, registry, cfg.Pipeline.MaxAttempts, sysLogger)

	processor := service.NewProcessorService(
		uowFactory,
		chain,
		chunker,
		generator,
		store,
		imageExtractor,
		files,
		hub,
		registry,
		cfg.Pipeline.ChunkSize,
		cfg.Pipeline.ChunkOverlap,
		sysLogger,
	)
	workerPool := queue.NewWorkerPool(
		pubSub,
		cfg.Pipeline.TopicName,
		cfg.Pipeline.WorkerCount,
		cfg.Pipeline.RetryBackoff,
		uowFactory,
		registry,
		processor.Handle,
		sysLogger,
	)
	janitor := queue.NewJanitor(uowFactory, cfg.Pipeline.JobRetention, sysLogger)

	// retrieval
	engine := retrieval.NewEngine(
		store,
		generator,
		cfg.Pipeline.DefaultTopK,
		cfg.Pipeline.MaxContextChars,
		cfg.Pipeline.MaxImages,
		sysLogger,
	)

	// services
	documentService := service.NewDocumentService(uowFactory, jobQueue, store, files, hub, sysLogger)
	retrievalService := service.NewRetrievalService(engine)

	return &Container{
		DocumentController:  controller.NewDocumentController(documentService, cfg.App.DocumentsRoot),
		RetrievalController: controller.NewRetrievalController(retrievalService),
		WorkerPool:          workerPool,
		Janitor:             janitor,
		JobQueue:            jobQueue,
		Logger:              sysLogger,
	}
}
