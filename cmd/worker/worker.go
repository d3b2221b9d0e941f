package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/internal/queue"
	"pdf-study-platform/internal/telemetry"
	"pdf-study-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()
	embeddingClient, err := ai.NewEmbeddingClient(ctx, cfg.GeminiAPIKey, cfg.EmbeddingsModel)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embeddingClient.Close()

	segmenter := services.NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap)
	chunkStore := services.NewChunkStore(db)
	retriever := services.NewRetriever(segmenter, embeddingClient, chunkStore, cfg.IndexCacheSize, metrics)
	extractor := services.NewPDFExtractor(cfg.MaxFileSize)
	quizStore := services.NewQuizStore(db)
	pdfService := services.NewPDFService(db, extractor, retriever, quizStore, cfg.FileStorageDir)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pdfService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestPDF, processor.IngestPDF)

	logger.Info("Starting ingestion worker",
		"concurrency", 20,
		"redis", redisOpt.Addr,
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
