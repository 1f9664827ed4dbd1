package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sherpa-assist/sherpa-backend/internal/config"
	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/logger"
	"github.com/sherpa-assist/sherpa-backend/internal/queue"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/sync"
	"github.com/sherpa-assist/sherpa-backend/internal/telemetry"
	"github.com/sherpa-assist/sherpa-backend/internal/vectors"
	"github.com/sherpa-assist/sherpa-backend/internal/workers"
	"go.uber.org/zap"
)

// embeddingDimension matches the default embedding model
// (text-embedding-3-small)
const embeddingDimension = 1536

const (
	dlqGCInterval  = time.Hour
	dlqGCRetention = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
		zap.String("reconcile_cron", cfg.ReconcileCron),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, "sherpa-worker", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
				zapLogger.Warn("Failed to shut down tracing", zap.Error(err))
			}
		}()
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	focusRepo := database.NewFocusRepository(db)

	index, err := vectors.NewStore(vectors.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.QdrantCollection,
	})
	if err != nil {
		zapLogger.Fatal("Failed to connect to Qdrant", zap.Error(err))
	}
	defer func() {
		if err := index.Close(); err != nil {
			zapLogger.Warn("Failed to close Qdrant connection", zap.Error(err))
		}
	}()

	if err := index.EnsureCollection(ctx, embeddingDimension); err != nil {
		zapLogger.Fatal("Failed to ensure Qdrant collection", zap.Error(err))
	}

	zapLogger.Info("Connected to Qdrant",
		zap.String("host", cfg.QdrantHost),
		zap.String("collection", cfg.QdrantCollection),
	)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	zapLogger.Info("Connected to Redis")

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	aiProvider := ai.NewOpenAIProviderWithLogger(
		cfg.OpenAIKey,
		cfg.AIBaseURL,
		cfg.AIModel,
		cfg.EmbeddingModel,
		zapLogger,
		debugMode,
	)

	syncer := sync.NewSynchronizer(focusRepo, index, aiProvider, zapLogger)
	locker := workers.NewRedisLocker(redisClient)
	reconciler := workers.NewReconciler(syncer, jobQueue, locker, zapLogger, cfg.RabbitMQPrefetch)
	scheduler := workers.NewScheduler(focusRepo, jobQueue, zapLogger)

	// Cron drives the scheduler: every tick turns the reconciliation
	// backlog into queue jobs
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(cfg.ReconcileCron, func() {
		if err := scheduler.ScheduleReconcileJobs(ctx); err != nil {
			zapLogger.Error("Failed to schedule reconcile jobs", zap.Error(err))
		}
	}); err != nil {
		zapLogger.Fatal("Invalid reconcile cron expression",
			zap.String("cron", cfg.ReconcileCron),
			zap.Error(err),
		)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// DLQ garbage collection
	gc := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqGCRetention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && ctx.Err() == nil {
			zapLogger.Error("DLQ garbage collector stopped", zap.Error(err))
		}
	}()

	// One scheduling pass at startup so a fresh deployment drains its
	// backlog without waiting for the first cron tick
	if err := scheduler.ScheduleReconcileJobs(ctx); err != nil {
		zapLogger.Error("Initial reconcile scheduling failed", zap.Error(err))
	}

	go func() {
		if err := reconciler.Run(ctx); err != nil && ctx.Err() == nil {
			zapLogger.Error("Reconciler stopped", zap.Error(err))
			cancel()
		}
	}()

	zapLogger.Info("Worker started, consuming reconcile jobs")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zapLogger.Info("Shutdown signal received, stopping worker...")
	case <-ctx.Done():
	}

	cancel()
	zapLogger.Info("Worker stopped")
}
