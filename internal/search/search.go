package search

import (
	"context"
	"fmt"
	"sort"
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

const tracerName = "github.com/sherpa-assist/sherpa-backend/internal/search"

// PageSize caps every search result
const PageSize = 10

// Params describes one search. Keyword, when set, routes the search through
// the semantic index first; the relational predicates always apply. DueOn is
// exclusive with the DueAfter/DueBefore range. An empty States slice means
// the default visibility (backlog and active).
type Params struct {
	ProfileID uuid.UUID
	Keyword   string
	DueOn     *time.Time
	DueAfter  *time.Time
	DueBefore *time.Time
	States    []models.FocusState
}

// Service runs hybrid keyword and relational search over focus items
type Service struct {
	repo   database.FocusRepositoryInterface
	index  vectors.Index
	ai     ai.Provider
	logger *zap.Logger
	tracer trace.Tracer
}

// NewService creates a search service
func NewService(repo database.FocusRepositoryInterface, index vectors.Index, provider ai.Provider, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		index:  index,
		ai:     provider,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Search runs a keyword search against the semantic index, intersects the
// candidates with the relational predicates, and returns at most PageSize
// items. Without a keyword it is a plain relational query ordered by due
// date. Intersecting with relational rows also filters out index orphans
// left behind by failed deletes.
func (s *Service) Search(ctx context.Context, params Params) ([]*models.FocusItem, error) {
	ctx, span := s.tracer.Start(ctx, "search.Search",
		trace.WithAttributes(
			attribute.String("profile_id", params.ProfileID.String()),
			attribute.Bool("keyword_search", params.Keyword != ""),
		))
	defer span.End()

	filter := database.SearchFilter{
		ProfileID: params.ProfileID,
		DueOn:     params.DueOn,
		DueAfter:  params.DueAfter,
		DueBefore: params.DueBefore,
		States:    params.States,
		Limit:     PageSize,
	}

	if params.Keyword == "" {
		return s.repo.Search(ctx, filter)
	}

	candidates, err := s.semanticCandidates(ctx, params.ProfileID, params.Keyword)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	filter.IDs = candidates
	items, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	return rankByCandidates(items, candidates), nil
}

// semanticCandidates embeds the keyword and returns nearest-neighbor item
// ids in similarity order.
func (s *Service) semanticCandidates(ctx context.Context, profileID uuid.UUID, keyword string) ([]uuid.UUID, error) {
	vecs, err := s.ai.Embed(ctx, []string{keyword})
	if err != nil {
		return nil, fmt.Errorf("failed to embed keyword: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 keyword embedding, got %d", len(vecs))
	}

	results, err := s.index.Query(ctx, profileID, vecs[0], PageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}

	s.logger.Debug("semantic candidates",
		zap.String("profile_id", profileID.String()),
		zap.Int("candidate_count", len(ids)),
	)

	return ids, nil
}

// rankByCandidates reorders relational rows into the similarity order the
// index returned. Rows the index never surfaced keep their relational order
// at the tail.
func rankByCandidates(items []*models.FocusItem, candidates []uuid.UUID) []*models.FocusItem {
	rank := make(map[uuid.UUID]int, len(candidates))
	for i, id := range candidates {
		rank[id] = i
	}

	ordered := make([]*models.FocusItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, aOK := rank[ordered[i].ID]
		b, bOK := rank[ordered[j].ID]
		if aOK && bOK {
			return a < b
		}
		return aOK && !bOK
	})

	return ordered
}
