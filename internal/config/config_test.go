package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sherpa")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.QdrantHost != "localhost" {
		t.Errorf("QdrantHost = %q, want localhost", cfg.QdrantHost)
	}
	if cfg.QdrantPort != 6334 {
		t.Errorf("QdrantPort = %d, want 6334", cfg.QdrantPort)
	}
	if cfg.QdrantCollection != "focus" {
		t.Errorf("QdrantCollection = %q, want focus", cfg.QdrantCollection)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want default", cfg.RedisURL)
	}
	if cfg.RabbitMQPrefetch != 1 {
		t.Errorf("RabbitMQPrefetch = %d, want 1", cfg.RabbitMQPrefetch)
	}
	if cfg.ReconcileCron != "@every 30m" {
		t.Errorf("ReconcileCron = %q, want @every 30m", cfg.ReconcileCron)
	}
	if cfg.WorkerDebugMode {
		t.Error("WorkerDebugMode should default to false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sherpa")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_USE_TLS", "true")
	t.Setenv("WORKER_DEBUG_MODE", "1")
	t.Setenv("AI_MODEL", "gpt-4o")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.QdrantPort != 7000 {
		t.Errorf("QdrantPort = %d, want 7000", cfg.QdrantPort)
	}
	if !cfg.QdrantUseTLS {
		t.Error("QdrantUseTLS should be true")
	}
	if !cfg.WorkerDebugMode {
		t.Error("WorkerDebugMode should be true")
	}
	if cfg.AIModel != "gpt-4o" {
		t.Errorf("AIModel = %q, want gpt-4o", cfg.AIModel)
	}
}

func TestLoad_RequiredFields(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/sherpa")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when OPENAI_API_KEY is missing")
	}
}
