package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a transcript message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage is one row of a conversation transcript. Transcripts are
// owned by the chat collaborator; this backend only reads them.
type ChatMessage struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Text           string      `json:"text"`
	CreatedAt      time.Time   `json:"created_at"`
}
