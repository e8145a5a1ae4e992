package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessagePreview is the display contract for a conversation's tail.
// Body here may be truncated; stored bodies never are.
type MessagePreview struct {
	SenderID string
	Body     string
	At       time.Time
}

// ConversationSummary is the listing view returned by the service:
// enough to render a conversation row without loading the full ledger.
type ConversationSummary struct {
	ID           uuid.UUID
	Participants []string
	LastMessage  *MessagePreview
	MessageCount int64
	CreatedAt    time.Time
	LastActivity time.Time
}
