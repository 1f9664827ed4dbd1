package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

// FocusRepositoryInterface defines the interface for focus repository operations
// This interface enables better testability by allowing mock implementations
type FocusRepositoryInterface interface {
	CreateBatch(ctx context.Context, items []*models.FocusItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FocusItem, error)
	Search(ctx context.Context, filter SearchFilter) ([]*models.FocusItem, error)
	UpdateState(ctx context.Context, id uuid.UUID, next models.FocusState) error
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListUnindexed(ctx context.Context, profileID uuid.UUID) ([]*models.FocusItem, error)
	MarkIndexed(ctx context.Context, ids []uuid.UUID) error
	ListOpenTexts(ctx context.Context, profileID uuid.UUID) ([]string, error)
	ListProfilesWithUnindexed(ctx context.Context) ([]uuid.UUID, error)
}

// MessageRepositoryInterface defines the interface for transcript reads
type MessageRepositoryInterface interface {
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error)
}

// Ensure concrete types implement the interfaces
var (
	_ FocusRepositoryInterface   = (*FocusRepository)(nil)
	_ MessageRepositoryInterface = (*MessageRepository)(nil)
)
