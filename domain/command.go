package domain

import "github.com/google/uuid"

type CreateConversationCommand struct {
	CreatorID      string   `validate:"required"`
	ParticipantIDs []string `validate:"required,min=1,dive,required"`
}

type AddParticipantCommand struct {
	ConversationID   uuid.UUID `validate:"required"`
	ActorID          string    `validate:"required"`
	NewParticipantID string    `validate:"required"`
}

type RemoveParticipantCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	ActorID        string    `validate:"required"`
	TargetID       string    `validate:"required"`
}

type PostMessageCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	SenderID       string    `validate:"required"`
	Body           string
}

type ListMessagesCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	RequesterID    string    `validate:"required"`
	Cursor         *string
}

type SearchMessagesCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	RequesterID    string    `validate:"required"`
	Query          string    `validate:"required"`
	Page           int       `validate:"min=0"`
}
