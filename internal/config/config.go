package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	OpenAIKey        string
	AIModel          string
	AIBaseURL        string
	EmbeddingModel   string
	QdrantHost       string
	QdrantPort       int
	QdrantUseTLS     bool
	QdrantCollection string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	ReconcileCron    string
	WorkerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", ""),
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "focus"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		ReconcileCron:    getEnv("RECONCILE_CRON", "@every 30m"),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required (extraction and search need a text-generation provider)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
