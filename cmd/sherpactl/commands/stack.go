package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sherpa-assist/sherpa-backend/internal/config"
	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/intent"
	"github.com/sherpa-assist/sherpa-backend/internal/search"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/sherpa"
	"github.com/sherpa-assist/sherpa-backend/internal/sync"
	"github.com/sherpa-assist/sherpa-backend/internal/vectors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// stack wires the full intent engine for one CLI invocation
type stack struct {
	FocusRepo database.FocusRepositoryInterface
	Router    *intent.Router
	Syncer    *sync.Synchronizer
	Searcher  *search.Service

	db    *database.DB
	index *vectors.Store
}

// newStack connects to every backing service. The caller must Close.
func newStack() (*stack, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI invocations log errors only; structured logs belong to the worker
	logger := zap.NewNop()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	index, err := vectors.NewStore(vectors.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.QdrantCollection,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	provider := ai.NewOpenAIProviderWithLogger(
		cfg.OpenAIKey,
		cfg.AIBaseURL,
		cfg.AIModel,
		cfg.EmbeddingModel,
		logger,
		false,
	)

	focusRepo := database.NewFocusRepository(db)
	messageRepo := database.NewMessageRepository(db)
	extractor := sherpa.NewExtractor(provider, logger)
	syncer := sync.NewSynchronizer(focusRepo, index, provider, logger)
	searcher := search.NewService(focusRepo, index, provider, logger)
	router := intent.NewRouter(provider, extractor, syncer, searcher, messageRepo, focusRepo, logger)

	return &stack{
		FocusRepo: focusRepo,
		Router:    router,
		Syncer:    syncer,
		Searcher:  searcher,
		db:        db,
		index:     index,
	}, nil
}

// Close releases every connection the stack holds
func (s *stack) Close() {
	if err := s.index.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close Qdrant: %v\n", err)
	}
	if err := s.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

// printYAML renders a command result to stdout
func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
