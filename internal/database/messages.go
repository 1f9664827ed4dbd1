package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

// MessageRepository reads conversation transcripts. Transcripts are owned
// by the chat collaborator; this repository never writes them.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListByConversation returns up to limit of the most recent messages for a
// conversation, in chronological order.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, text, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, storageErr("list chat messages", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, storageErr("scan chat message", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate chat messages", err)
	}

	// Query walks newest-first for the LIMIT; callers want oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
