package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/sherpa-assist/sherpa-backend/internal/search"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/sherpa"
	"github.com/sherpa-assist/sherpa-backend/internal/sync"
	"go.uber.org/zap"
)

// Op is one of the closed set of operations an utterance can trigger
type Op string

const (
	OpCreate Op = "create_tasks"
	OpSearch Op = "search_tasks"
	OpEdit   Op = "edit_task"
	OpChat   Op = "chat"
)

// Ops lists every valid Op value
var Ops = []Op{OpCreate, OpSearch, OpEdit, OpChat}

// EditNotSupportedReply is returned by the edit branch until locate-by-
// description editing ships.
const EditNotSupportedReply = "Editing tasks is not yet supported."

// historyLimit bounds how many transcript messages classification sees
const historyLimit = 10

// CreateParams is the payload of a create_tasks call
type CreateParams struct {
	UserInput string `json:"user_input"`
}

// SearchParams is the payload of a search_tasks call. Dates arrive as ISO
// strings because they cross the model boundary.
type SearchParams struct {
	Keyword   string `json:"keyword"`
	DueOn     string `json:"due_on"`
	DueAfter  string `json:"due_after"`
	DueBefore string `json:"due_before"`
	Status    string `json:"status"`
}

// EditParams is the payload of an edit_task call
type EditParams struct {
	TaskQuery   string `json:"task_query"`
	NewTaskName string `json:"new_task_name"`
	NewDueDate  string `json:"new_due_date"`
	NewStatus   string `json:"new_status"`
}

// ChatParams is the payload of a chat call
type ChatParams struct {
	UserMessage string `json:"user_message"`
}

// Failure records one branch that did not complete
type Failure struct {
	Op  Op
	Err error
}

// Result aggregates everything a single utterance triggered. Every branch
// output is optional; Failed lists branches that were attempted and failed
// without aborting the request.
type Result struct {
	Input   string
	Created []*models.FocusItem
	Found   []*models.FocusItem
	Reply   string
	Failed  []Failure
}

// Router classifies utterances and dispatches the resulting operations
type Router struct {
	provider  ai.Provider
	extractor *sherpa.Extractor
	syncer    *sync.Synchronizer
	searcher  *search.Service
	messages  database.MessageRepositoryInterface
	repo      database.FocusRepositoryInterface
	logger    *zap.Logger
}

// NewRouter creates an intent router
func NewRouter(
	provider ai.Provider,
	extractor *sherpa.Extractor,
	syncer *sync.Synchronizer,
	searcher *search.Service,
	messages database.MessageRepositoryInterface,
	repo database.FocusRepositoryInterface,
	logger *zap.Logger,
) *Router {
	return &Router{
		provider:  provider,
		extractor: extractor,
		syncer:    syncer,
		searcher:  searcher,
		messages:  messages,
		repo:      repo,
		logger:    logger,
	}
}

// Process classifies one utterance and runs every operation it maps to, in
// the order classification returned them. A branch failing is recorded in
// Result.Failed and the remaining branches still run; a storage failure
// aborts the whole request because nothing downstream can be trusted after
// the source of truth errored.
func (r *Router) Process(ctx context.Context, profileID uuid.UUID, conversationID uuid.UUID, utterance string) (*Result, error) {
	now := time.Now()

	history, err := r.loadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	calls, err := r.provider.ClassifyIntent(ctx, ai.IntentRequest{
		ProfileID: profileID,
		Utterance: utterance,
		Today:     now,
		History:   history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify utterance: %w", err)
	}

	result := &Result{Input: utterance}
	for _, call := range calls {
		op := Op(call.Name)
		if err := r.dispatch(ctx, profileID, now, op, call.Parameters, result); err != nil {
			var storageErr *database.StorageError
			if errors.As(err, &storageErr) {
				return nil, err
			}
			r.logger.Warn("intent branch failed",
				zap.String("op", string(op)),
				zap.String("profile_id", profileID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, Failure{Op: op, Err: err})
		}
	}

	return result, nil
}

// ProcessTranscript is the chat-summary variant: instead of classifying, it
// extracts tasks from a whole conversation transcript, excluding the
// profile's open tasks so re-discussed work is not duplicated. Only the
// create branch runs.
func (r *Router) ProcessTranscript(ctx context.Context, profileID uuid.UUID, transcript string) (*Result, error) {
	now := time.Now()

	exclusions, err := r.repo.ListOpenTexts(ctx, profileID)
	if err != nil {
		return nil, err
	}

	drafts, err := r.extractor.Extract(ctx, transcript, now, exclusions)
	if err != nil {
		return nil, err
	}

	created, err := r.syncer.Create(ctx, profileID, drafts)
	if err != nil {
		return nil, err
	}

	return &Result{Input: transcript, Created: created}, nil
}

func (r *Router) dispatch(ctx context.Context, profileID uuid.UUID, now time.Time, op Op, params json.RawMessage, result *Result) error {
	switch op {
	case OpCreate:
		return r.runCreate(ctx, profileID, now, params, result)
	case OpSearch:
		return r.runSearch(ctx, profileID, params, result)
	case OpEdit:
		return r.runEdit(result)
	case OpChat:
		return r.runChat(ctx, params, result)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func (r *Router) runCreate(ctx context.Context, profileID uuid.UUID, now time.Time, params json.RawMessage, result *Result) error {
	var p CreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("bad create_tasks parameters: %w", err)
	}
	if p.UserInput == "" {
		return fmt.Errorf("create_tasks requires user_input")
	}

	drafts, err := r.extractor.Extract(ctx, p.UserInput, now, nil)
	if err != nil {
		return err
	}

	created, err := r.syncer.Create(ctx, profileID, drafts)
	if err != nil {
		return err
	}

	result.Created = append(result.Created, created...)
	return nil
}

func (r *Router) runSearch(ctx context.Context, profileID uuid.UUID, params json.RawMessage, result *Result) error {
	var p SearchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("bad search_tasks parameters: %w", err)
	}

	searchParams := search.Params{
		ProfileID: profileID,
		Keyword:   p.Keyword,
	}

	var err error
	if searchParams.DueOn, err = parseDate(p.DueOn); err != nil {
		return fmt.Errorf("bad due_on: %w", err)
	}
	if searchParams.DueAfter, err = parseDate(p.DueAfter); err != nil {
		return fmt.Errorf("bad due_after: %w", err)
	}
	if searchParams.DueBefore, err = parseDate(p.DueBefore); err != nil {
		return fmt.Errorf("bad due_before: %w", err)
	}

	if p.Status != "" {
		searchParams.States = statesFor(models.FocusState(p.Status))
	}

	found, err := r.searcher.Search(ctx, searchParams)
	if err != nil {
		return err
	}

	result.Found = append(result.Found, found...)
	return nil
}

func (r *Router) runEdit(result *Result) error {
	// Locate-by-description editing is not implemented yet; the branch
	// reports that without failing the request.
	if result.Reply == "" {
		result.Reply = EditNotSupportedReply
	}
	return nil
}

func (r *Router) runChat(ctx context.Context, params json.RawMessage, result *Result) error {
	var p ChatParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("bad chat parameters: %w", err)
	}
	if p.UserMessage == "" {
		return fmt.Errorf("chat requires user_message")
	}

	reply, err := r.provider.Chat(ctx, []ai.ChatMessage{{Role: "user", Content: p.UserMessage}})
	if err != nil {
		return err
	}

	result.Reply = reply
	return nil
}

// loadHistory fetches recent transcript messages for classification context.
// A nil conversation id means a fresh conversation with no history.
func (r *Router) loadHistory(ctx context.Context, conversationID uuid.UUID) ([]ai.ChatMessage, error) {
	if conversationID == uuid.Nil {
		return nil, nil
	}

	messages, err := r.messages.ListByConversation(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, err
	}

	history := make([]ai.ChatMessage, len(messages))
	for i, m := range messages {
		history[i] = ai.ChatMessage{Role: string(m.Role), Content: m.Text}
	}
	return history, nil
}

// statesFor widens a requested state the way users mean it: asking for
// backlog or active work means everything still open.
func statesFor(state models.FocusState) []models.FocusState {
	switch state {
	case models.FocusStateBacklog, models.FocusStateActive:
		return []models.FocusState{models.FocusStateBacklog, models.FocusStateActive}
	default:
		return []models.FocusState{state}
	}
}

func parseDate(value string) (*time.Time, error) {
	if value == "" || value == "null" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
