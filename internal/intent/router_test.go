package intent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/sherpa-assist/sherpa-backend/internal/search"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/sherpa"
	"github.com/sherpa-assist/sherpa-backend/internal/sync"
	"github.com/sherpa-assist/sherpa-backend/internal/vectors"
	"go.uber.org/zap"
)

type fakeProvider struct {
	calls       []ai.ToolCall
	classifyErr error
	lastIntent  ai.IntentRequest

	payloads   []models.ItemPayload
	extractErr error

	reply   string
	chatErr error
}

func (f *fakeProvider) ClassifyIntent(_ context.Context, req ai.IntentRequest) ([]ai.ToolCall, error) {
	f.lastIntent = req
	return f.calls, f.classifyErr
}

func (f *fakeProvider) ExtractItems(context.Context, string, time.Time, []string) ([]models.ItemPayload, error) {
	return f.payloads, f.extractErr
}

func (f *fakeProvider) Chat(context.Context, []ai.ChatMessage) (string, error) {
	return f.reply, f.chatErr
}

func (f *fakeProvider) Keywords(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{0.1, 0.2}
	}
	return vecs, nil
}

type fakeRepo struct {
	items     map[uuid.UUID]*models.FocusItem
	openTexts []string
	createErr error
	searchErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]*models.FocusItem)}
}

func (f *fakeRepo) CreateBatch(_ context.Context, items []*models.FocusItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FocusItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return item, nil
}

func (f *fakeRepo) Search(_ context.Context, filter database.SearchFilter) ([]*models.FocusItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var matched []*models.FocusItem
	for _, item := range f.items {
		if item.ProfileID == filter.ProfileID {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (f *fakeRepo) UpdateState(context.Context, uuid.UUID, models.FocusState) error { return nil }
func (f *fakeRepo) UpdateText(context.Context, uuid.UUID, string) error             { return nil }
func (f *fakeRepo) Delete(context.Context, uuid.UUID) error                         { return nil }
func (f *fakeRepo) ListUnindexed(context.Context, uuid.UUID) ([]*models.FocusItem, error) {
	return nil, nil
}
func (f *fakeRepo) MarkIndexed(context.Context, []uuid.UUID) error { return nil }

func (f *fakeRepo) ListOpenTexts(context.Context, uuid.UUID) ([]string, error) {
	return f.openTexts, nil
}

func (f *fakeRepo) ListProfilesWithUnindexed(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeMessages struct {
	messages []*models.ChatMessage
	err      error
}

func (f *fakeMessages) ListByConversation(context.Context, uuid.UUID, int) ([]*models.ChatMessage, error) {
	return f.messages, f.err
}

type fakeIndex struct{}

func (fakeIndex) Upsert(context.Context, []vectors.Entry) error { return nil }
func (fakeIndex) Delete(context.Context, []uuid.UUID) error     { return nil }
func (fakeIndex) GetByIDs(context.Context, []uuid.UUID) ([]vectors.Result, error) {
	return nil, nil
}
func (fakeIndex) Query(context.Context, uuid.UUID, []float32, uint64) ([]vectors.Result, error) {
	return nil, nil
}

func rawParams(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	return raw
}

func newRouter(provider *fakeProvider, repo *fakeRepo, messages *fakeMessages) *Router {
	logger := zap.NewNop()
	extractor := sherpa.NewExtractor(provider, logger)
	syncer := sync.NewSynchronizer(repo, fakeIndex{}, provider, logger)
	searcher := search.NewService(repo, fakeIndex{}, provider, logger)
	return NewRouter(provider, extractor, syncer, searcher, messages, repo, logger)
}

func taskPayload(text string) models.ItemPayload {
	return models.ItemPayload{
		Type:      "task",
		TaskSize:  "small",
		Text:      text,
		Category:  "shopping",
		Priority:  3,
		Sentiment: "neutral",
	}
}

func TestProcessCreateBranch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		payloads: []models.ItemPayload{taskPayload("buy milk")},
	}
	repo := newFakeRepo()
	router := newRouter(provider, repo, &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "create_tasks", Parameters: rawParams(t, CreateParams{UserInput: "I need to buy milk"})},
	}

	result, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "I need to buy milk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("expected 1 created item, got %d", len(result.Created))
	}
	if result.Created[0].Text != "buy milk" {
		t.Errorf("expected created text 'buy milk', got %q", result.Created[0].Text)
	}
	if len(result.Failed) != 0 {
		t.Errorf("expected no failed branches, got %v", result.Failed)
	}
	if len(repo.items) != 1 {
		t.Errorf("expected item persisted, got %d rows", len(repo.items))
	}
}

func TestProcessSearchBranch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	repo := newFakeRepo()
	profileID := uuid.New()
	existing := &models.FocusItem{ID: uuid.New(), ProfileID: profileID, Text: "buy milk", State: models.FocusStateBacklog}
	repo.items[existing.ID] = existing

	router := newRouter(provider, repo, &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "search_tasks", Parameters: rawParams(t, SearchParams{DueBefore: "2024-08-01"})},
	}

	result, err := router.Process(context.Background(), profileID, uuid.Nil, "what's due before August")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Found) != 1 {
		t.Fatalf("expected 1 found item, got %d", len(result.Found))
	}
	if result.Found[0].ID != existing.ID {
		t.Error("expected the existing item found")
	}
}

func TestProcessChatBranch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{reply: "Hello! How can I help?"}
	router := newRouter(provider, newFakeRepo(), &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "chat", Parameters: rawParams(t, ChatParams{UserMessage: "hi"})},
	}

	result, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reply != "Hello! How can I help?" {
		t.Errorf("unexpected reply: %q", result.Reply)
	}
	if len(result.Created) != 0 || len(result.Found) != 0 {
		t.Error("chat must have no persistence side effect")
	}
}

func TestProcessEditBranchStub(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	router := newRouter(provider, newFakeRepo(), &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "edit_task", Parameters: rawParams(t, EditParams{TaskQuery: "the milk task"})},
	}

	result, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "rename the milk task")
	if err != nil {
		t.Fatalf("edit stub must not fail the request: %v", err)
	}
	if result.Reply != EditNotSupportedReply {
		t.Errorf("expected the not-supported reply, got %q", result.Reply)
	}
	if len(result.Failed) != 0 {
		t.Errorf("expected no failed branches, got %v", result.Failed)
	}
}

func TestProcessOrderedMultiBranch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		payloads: []models.ItemPayload{taskPayload("buy milk")},
		reply:    "Done!",
	}
	router := newRouter(provider, newFakeRepo(), &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "create_tasks", Parameters: rawParams(t, CreateParams{UserInput: "buy milk"})},
		{Name: "chat", Parameters: rawParams(t, ChatParams{UserMessage: "thanks"})},
	}

	result, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "add buy milk, thanks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Created) != 1 {
		t.Errorf("expected create branch to run, got %d items", len(result.Created))
	}
	if result.Reply != "Done!" {
		t.Errorf("expected chat branch to run, got %q", result.Reply)
	}
}

func TestProcessBranchFailureDoesNotCancelOthers(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		chatErr: errors.New("chat model down"),
		reply:   "",
	}
	repo := newFakeRepo()
	profileID := uuid.New()
	existing := &models.FocusItem{ID: uuid.New(), ProfileID: profileID, State: models.FocusStateBacklog}
	repo.items[existing.ID] = existing

	router := newRouter(provider, repo, &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "chat", Parameters: rawParams(t, ChatParams{UserMessage: "hi"})},
		{Name: "search_tasks", Parameters: rawParams(t, SearchParams{})},
	}

	result, err := router.Process(context.Background(), profileID, uuid.Nil, "hi, also list my tasks")
	if err != nil {
		t.Fatalf("branch failure must not abort the request: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].Op != OpChat {
		t.Errorf("expected the chat branch recorded as failed, got %v", result.Failed)
	}
	if len(result.Found) != 1 {
		t.Errorf("expected the search branch to still run, got %d items", len(result.Found))
	}
}

func TestProcessStorageFailureAborts(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		payloads: []models.ItemPayload{taskPayload("buy milk")},
	}
	repo := newFakeRepo()
	repo.createErr = &database.StorageError{Op: "create focus items", Err: errors.New("db down")}

	router := newRouter(provider, repo, &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "create_tasks", Parameters: rawParams(t, CreateParams{UserInput: "buy milk"})},
		{Name: "chat", Parameters: rawParams(t, ChatParams{UserMessage: "hi"})},
	}

	_, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "buy milk")
	if err == nil {
		t.Fatal("expected storage failure to abort the request")
	}

	var storageErr *database.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("expected StorageError, got %T", err)
	}
}

func TestProcessClassificationFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{classifyErr: errors.New("model down")}
	router := newRouter(provider, newFakeRepo(), &fakeMessages{})

	if _, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "hello"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestProcessUnknownOperation(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	router := newRouter(provider, newFakeRepo(), &fakeMessages{})
	provider.calls = []ai.ToolCall{
		{Name: "launch_rocket", Parameters: json.RawMessage(`{}`)},
	}

	result, err := router.Process(context.Background(), uuid.New(), uuid.Nil, "launch")
	if err != nil {
		t.Fatalf("unknown op must be recorded, not fatal: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failed branch, got %d", len(result.Failed))
	}
}

func TestProcessLoadsHistory(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	messages := &fakeMessages{messages: []*models.ChatMessage{
		{Role: models.MessageRoleUser, Text: "earlier question"},
		{Role: models.MessageRoleAssistant, Text: "earlier answer"},
	}}
	router := newRouter(provider, newFakeRepo(), messages)

	conversationID := uuid.New()
	if _, err := router.Process(context.Background(), uuid.New(), conversationID, "follow-up"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.lastIntent.History) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(provider.lastIntent.History))
	}
	if provider.lastIntent.History[1].Role != "assistant" {
		t.Errorf("expected assistant role carried through, got %q", provider.lastIntent.History[1].Role)
	}
}

func TestProcessTranscript(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		payloads: []models.ItemPayload{taskPayload("book dentist")},
	}
	repo := newFakeRepo()
	repo.openTexts = []string{"buy milk"}

	router := newRouter(provider, repo, &fakeMessages{})

	result, err := router.ProcessTranscript(context.Background(), uuid.New(), "long conversation about teeth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("expected 1 created item, got %d", len(result.Created))
	}
	if result.Created[0].Text != "book dentist" {
		t.Errorf("expected 'book dentist', got %q", result.Created[0].Text)
	}
}

func TestStatesFor(t *testing.T) {
	t.Parallel()

	open := statesFor(models.FocusStateActive)
	if len(open) != 2 {
		t.Errorf("expected active to widen to both open states, got %v", open)
	}

	completed := statesFor(models.FocusStateCompleted)
	if len(completed) != 1 || completed[0] != models.FocusStateCompleted {
		t.Errorf("expected completed to stay narrow, got %v", completed)
	}
}
