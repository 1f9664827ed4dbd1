package sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/vectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/sherpa-assist/sherpa-backend/internal/sync"

// Synchronizer keeps the relational store and the semantic index eventually
// consistent. The relational store is the source of truth: writes land there
// first, and the index mirror is best effort. An item whose mirror failed
// stays visible through relational search and is picked up by the next
// reconciliation pass via its in_index flag.
type Synchronizer struct {
	repo   database.FocusRepositoryInterface
	index  vectors.Index
	ai     ai.Provider
	logger *zap.Logger
	tracer trace.Tracer
}

// NewSynchronizer creates a synchronizer
func NewSynchronizer(repo database.FocusRepositoryInterface, index vectors.Index, provider ai.Provider, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		repo:   repo,
		index:  index,
		ai:     provider,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Create persists drafts as new backlog items and mirrors them into the
// semantic index. The relational write is transactional and must succeed;
// the mirror may fail without failing the call.
func (s *Synchronizer) Create(ctx context.Context, profileID uuid.UUID, drafts []models.FocusDraft) ([]*models.FocusItem, error) {
	ctx, span := s.tracer.Start(ctx, "sync.Create",
		trace.WithAttributes(attribute.Int("item_count", len(drafts))))
	defer span.End()

	if len(drafts) == 0 {
		return nil, nil
	}

	now := time.Now()
	items := make([]*models.FocusItem, len(drafts))
	for i, d := range drafts {
		items[i] = &models.FocusItem{
			ID:        uuid.New(),
			ProfileID: profileID,
			Text:      d.Text,
			Type:      d.Type,
			TaskSize:  d.TaskSize,
			Category:  d.Category,
			Priority:  d.Priority,
			Sentiment: d.Sentiment,
			State:     models.FocusStateBacklog,
			DueDate:   d.DueDate,
			InIndex:   false,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	if err := s.mirror(ctx, items); err != nil {
		// Reconciliation will retry; the items are already durable
		s.logger.Warn("index mirror failed, items left for reconciliation",
			zap.String("profile_id", profileID.String()),
			zap.Int("item_count", len(items)),
			zap.Error(err),
		)
	}

	return items, nil
}

// Reconcile mirrors every unindexed item of one profile into the semantic
// index and returns how many it indexed. It is idempotent: a second pass over
// an already consistent profile does nothing and returns zero.
func (s *Synchronizer) Reconcile(ctx context.Context, profileID uuid.UUID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "sync.Reconcile",
		trace.WithAttributes(attribute.String("profile_id", profileID.String())))
	defer span.End()

	items, err := s.repo.ListUnindexed(ctx, profileID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	if err := s.mirror(ctx, items); err != nil {
		return 0, err
	}

	s.logger.Info("reconciled profile",
		zap.String("profile_id", profileID.String()),
		zap.Int("indexed_count", len(items)),
	)

	return len(items), nil
}

// Delete removes an item from both stores. The relational delete is
// authoritative; the index delete is best effort because an orphaned index
// entry is never discoverable (search always intersects candidates with
// relational rows).
func (s *Synchronizer) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "sync.Delete",
		trace.WithAttributes(attribute.String("item_id", id.String())))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.index.Delete(ctx, []uuid.UUID{id}); err != nil {
		s.logger.Warn("index delete failed, orphan entry left behind",
			zap.String("item_id", id.String()),
			zap.Error(err),
		)
	}

	return nil
}

// UpdateText rewrites an item's description. The repository resets in_index,
// so the stale entry is replaced on the next mirror; UpdateText attempts one
// immediately rather than waiting for the scheduler.
func (s *Synchronizer) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	if err := s.repo.UpdateText(ctx, id, text); err != nil {
		return err
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mirror(ctx, []*models.FocusItem{item}); err != nil {
		s.logger.Warn("index mirror after text update failed",
			zap.String("item_id", id.String()),
			zap.Error(err),
		)
	}

	return nil
}

// mirror pushes items into the semantic index and flips their in_index flag.
// The flag only moves after the upsert succeeds, so a failure here leaves the
// items eligible for the next pass.
func (s *Synchronizer) mirror(ctx context.Context, items []*models.FocusItem) error {
	documents := make([]string, len(items))
	for i, item := range items {
		documents[i] = s.buildDocument(ctx, item.Text)
	}

	vecs, err := s.ai.Embed(ctx, documents)
	if err != nil {
		return err
	}

	entries := make([]vectors.Entry, len(items))
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		entries[i] = vectors.Entry{
			ID:       item.ID,
			Vector:   vecs[i],
			Document: documents[i],
			Payload: map[string]any{
				"profile_id": item.ProfileID.String(),
			},
		}
		ids[i] = item.ID
	}

	if err := s.index.Upsert(ctx, entries); err != nil {
		return err
	}

	return s.repo.MarkIndexed(ctx, ids)
}

// buildDocument enriches an item's text with derived keywords so keyword
// search matches synonyms the text itself never mentions. Keyword generation
// failing only costs the enrichment.
func (s *Synchronizer) buildDocument(ctx context.Context, text string) string {
	keywords, err := s.ai.Keywords(ctx, text)
	if err != nil {
		s.logger.Warn("keyword generation failed, indexing bare text", zap.Error(err))
		return text
	}
	if len(keywords) == 0 {
		return text
	}
	return text + " \n\n " + strings.Join(keywords, ",")
}
