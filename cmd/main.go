package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/internal/telemetry"
	"pdf-study-platform/middleware"
	"pdf-study-platform/routes"
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

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("pdf-study-platform", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}

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

	generationClient, err := ai.NewGenerationClient(ctx, cfg.GeminiAPIKey, cfg.GenerationModel, cfg.GeminiTier, metrics)
	if err != nil {
		log.Fatal("Failed to initialize generation client:", err)
	}
	defer generationClient.Close()

	// Core services
	segmenter := services.NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap)
	chunkStore := services.NewChunkStore(db)
	retriever := services.NewRetriever(segmenter, embeddingClient, chunkStore, cfg.IndexCacheSize, metrics)
	extractor := services.NewPDFExtractor(cfg.MaxFileSize)
	quizStore := services.NewQuizStore(db)
	pdfService := services.NewPDFService(db, extractor, retriever, quizStore, cfg.FileStorageDir)
	quizService := services.NewQuizService(pdfService, retriever, generationClient, quizStore, cfg.QuizNumQuestions, cfg.QuizMaxQuestions, metrics)
	answerService := services.NewAnswerService(retriever, generationClient, cfg.SearchTopK)
	exportService := services.NewExportService(quizStore)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	janitor := services.NewJanitor(retriever, chunkStore, 15*time.Minute, time.Hour)
	go janitor.Start()
	defer janitor.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg, rdb)

	routes.SetupAuthRoutes(router, cfg, mongoClient, rdb, authMiddleware)
	routes.SetupPDFRoutes(router, cfg, pdfService, retriever, answerService, queueClient, authMiddleware)
	routes.SetupQuizRoutes(router, cfg, quizService, exportService, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
