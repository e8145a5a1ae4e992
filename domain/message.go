// Package domain contains core concepts of the messaging system.
// This file defines Message records.
// Messages are immutable once appended, there is no edit or delete.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable entry in a conversation's ledger.
// Position is a 1-based, dense, strictly increasing ordinal within the
// owning conversation; CreatedAt never decreases along positions.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Body           string
	Lang           string // ISO 639-1 code detected from the body, empty when undetected
	Position       int64
	CreatedAt      time.Time
}
