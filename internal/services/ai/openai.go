package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default chat model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default embedding model to use
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client         openai.Client
	model          string
	embeddingModel string
	logger         *zap.Logger
	debugMode      bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, "", nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, embeddingModel string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		logger:         logger,
		debugMode:      debugMode,
	}
}

// complete sends a chat completion request and returns the response content.
// When jsonMode is set the model is constrained to emit a JSON object.
func (p *OpenAIProvider) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion, jsonMode bool) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if jsonMode {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	requestID := ExtractRequestID(ctx)
	profileID := ExtractProfileID(ctx)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.String("profile_id", profileID),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("profile_id", profileID),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to %s: %w", operation, apiErr)
		}
		return "", models.WrapTimeout(operation, fmt.Errorf("failed to %s: %w", operation, err))
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("profile_id", profileID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// ExtractItems turns free text into candidate item payloads
func (p *OpenAIProvider) ExtractItems(ctx context.Context, input string, today time.Time, exclusions []string) ([]models.ItemPayload, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildExtractionSystemPrompt(exclusions)),
		openai.UserMessage(fmt.Sprintf("Current Date: %s\n\n%s", today.Format("Monday January 02, 2006"), input)),
	}

	content, err := p.complete(ctx, "extract items", messages, true)
	if err != nil {
		return nil, err
	}

	return parseExtractionResponse(content)
}

// ClassifyIntent maps an utterance onto the ordered operations it should trigger
func (p *OpenAIProvider) ClassifyIntent(ctx context.Context, req IntentRequest) ([]ToolCall, error) {
	user := fmt.Sprintf("Profile ID: %s\n\nToday's Date: %s\n\n%s",
		req.ProfileID, req.Today.Format("2006-01-02"), req.Utterance)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(intentSystemPrompt))
	for _, msg := range req.History {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(user))

	content, err := p.complete(ctx, "classify intent", messages, true)
	if err != nil {
		return nil, err
	}

	return parseIntentResponse(content)
}

// Chat produces a conversational reply
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	openAIMessages = append(openAIMessages, openai.SystemMessage(chatSystemPrompt))

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		default:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		}
	}

	return p.complete(ctx, "chat", openAIMessages, false)
}

// Keywords derives search keywords for an item description
func (p *OpenAIProvider) Keywords(ctx context.Context, text string) ([]string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(keywordsSystemPrompt),
		openai.UserMessage(text),
	}

	content, err := p.complete(ctx, "generate keywords", messages, true)
	if err != nil {
		return nil, err
	}

	return parseKeywordsResponse(content)
}

// Embed returns one embedding vector per input text
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	latency := time.Since(start)

	if err != nil {
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to embed texts: %w", apiErr)
		}
		return nil, models.WrapTimeout("embed texts", fmt.Errorf("failed to embed texts: %w", err))
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Data), len(texts))
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "embed texts"),
			zap.String("model", p.embeddingModel),
			zap.Int("input_count", len(texts)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// parseExtractionResponse parses the extraction JSON, trimming any prose
// the model wrapped around the object.
func parseExtractionResponse(content string) ([]models.ItemPayload, error) {
	var extraction struct {
		Items []models.ItemPayload `json:"items"`
	}
	raw := trimToJSONObject(content)
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return extraction.Items, nil
}

// parseIntentResponse parses the classification JSON into ordered tool calls
func parseIntentResponse(content string) ([]ToolCall, error) {
	var intent struct {
		ToolCalls []ToolCall `json:"tool_calls"`
	}
	raw := trimToJSONObject(content)
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	for _, call := range intent.ToolCalls {
		if call.Name == "" {
			return nil, fmt.Errorf("intent response contains a tool call without a name")
		}
	}
	return intent.ToolCalls, nil
}

// parseKeywordsResponse parses the keyword-generation JSON
func parseKeywordsResponse(content string) ([]string, error) {
	var keywords struct {
		Keywords []string `json:"keywords"`
	}
	raw := trimToJSONObject(content)
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("failed to parse keywords response: %w", err)
	}
	return keywords.Keywords, nil
}

// trimToJSONObject cuts leading/trailing prose around a JSON object
func trimToJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end != -1 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

const chatSystemPrompt = "You are Sherpa, a personal productivity assistant. " +
	"You help users capture, organize, and find their tasks and goals. Be concise and helpful."

const keywordsSystemPrompt = `Generate search keywords for the given task description.
Keywords should cover the task's subject, action, and likely synonyms a user might search with.

Respond with a JSON object in this format:
{"keywords": ["keyword1", "keyword2"]}

Return only valid JSON.`

const intentSystemPrompt = `You are the intent classifier for a personal productivity assistant.
Given a user's message, decide which of the following operations it should trigger. A single
message may trigger more than one operation; list them in the order they should run.

Operations:
- "create_tasks": the user describes one or more things to capture as tasks, goals, events,
  reminders, or notes. Parameters: {"user_input": "<the part of the message describing the items>"}
- "search_tasks": the user asks to find or list existing tasks. Parameters:
  {"keyword": "<search keyword, may be empty>", "due_on": "<ISO date or null>",
   "due_after": "<ISO date or null>", "due_before": "<ISO date or null>",
   "status": "<backlog|active|completed or null>"}
- "edit_task": the user asks to change an existing task. Parameters:
  {"task_query": "<description of the task to change>", "new_task_name": "<new description or empty>",
   "new_due_date": "<ISO date or empty>", "new_status": "<new lifecycle state or empty>"}
- "chat": anything else; plain conversation with no task side effect. Parameters:
  {"user_message": "<the user's message>"}

Respond with a JSON object in this format:
{"tool_calls": [{"name": "<operation>", "parameters": {...}}]}

Return only valid JSON.`

// buildExtractionSystemPrompt builds the item-extraction instruction,
// optionally carrying an exclusion list of tasks that already exist.
func buildExtractionSystemPrompt(exclusions []string) string {
	var b strings.Builder
	b.WriteString(`You extract structured items from a user's free-form input for a personal productivity assistant.
Break the input into zero or more individual items. Each item has:
- "type": one of `)
	b.WriteString(joinVocabulary(models.ItemTypes))
	b.WriteString("\n- \"task_size\": one of ")
	b.WriteString(joinVocabulary(models.TaskSizes))
	b.WriteString("\n- \"text\": a short description of the item in the user's words")
	b.WriteString("\n- \"category\": one of ")
	b.WriteString(joinVocabulary(models.Categories))
	b.WriteString("\n- \"priority\": an integer from 1 (most urgent) to 5 (optional)")
	b.WriteString("\n- \"sentiment\": one of ")
	b.WriteString(joinVocabulary(models.Sentiments))
	b.WriteString(`
- "due_date": the due date if the input states or implies one, otherwise null. Use an ISO date
  string when the date is explicit. For relative dates, use an object
  {"month": M, "day": D, "year": Y, "time": T} where each field is a number of months/days/years
  from today (0 means today's value) or a literal value (a full month name, a literal day of month).

Respond with a JSON object in this format:
{"items": [{"type": ..., "task_size": ..., "text": ..., "category": ..., "priority": ..., "sentiment": ..., "due_date": ...}]}

If the input contains nothing worth capturing, return {"items": []}.
Return only valid JSON.`)

	if len(exclusions) > 0 {
		b.WriteString("\n\nThe user already has the following open tasks. Do NOT create duplicates of these:")
		for _, text := range exclusions {
			b.WriteString("\n- ")
			b.WriteString(text)
		}
	}

	return b.String()
}

func joinVocabulary[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (Provider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		return NewOpenAIProviderWithLogger(
			apiKey,
			config["base_url"],
			config["model"],
			config["embedding_model"],
			nil,
			false,
		), nil
	})
}

// Ensure OpenAIProvider implements the Provider interface
var _ Provider = (*OpenAIProvider)(nil)
