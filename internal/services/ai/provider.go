package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ToolCall is one operation the model selected for an utterance. Name is a
// member of the closed operation set the router understands; Parameters is
// the raw typed payload for that operation.
type ToolCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// IntentRequest carries everything classification may consult: the
// utterance, the current date, the owner, and recent transcript messages
// for context continuity.
type IntentRequest struct {
	ProfileID uuid.UUID
	Utterance string
	Today     time.Time
	History   []ChatMessage
}

// Provider is the interface for text-generation providers. Every method is
// a network round trip: callers supply a deadline via ctx, and a deadline
// failure surfaces as models.UpstreamTimeoutError rather than an empty
// result. Provider output is untrusted; item payloads must pass through
// validation before anything persists them.
type Provider interface {
	// ExtractItems turns free text into zero or more candidate item
	// payloads. Descriptions in exclusions are tasks that already exist
	// and must not be re-extracted.
	ExtractItems(ctx context.Context, input string, today time.Time, exclusions []string) ([]models.ItemPayload, error)

	// ClassifyIntent maps an utterance onto the ordered operations it
	// should trigger
	ClassifyIntent(ctx context.Context, req IntentRequest) ([]ToolCall, error)

	// Chat produces a conversational reply with no persistence side effect
	Chat(ctx context.Context, messages []ChatMessage) (string, error)

	// Keywords derives search keywords for an item description, used to
	// enrich its semantic-index document
	Keywords(ctx context.Context, text string) ([]string, error)

	// Embed returns one embedding vector per input text
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderFactory creates a provider from opaque configuration
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available text-generation providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "text-generation provider not found: " + e.Name
}
