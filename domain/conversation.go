// Package domain contains core concepts of the messaging system.
// This file defines Conversation records and the participant-set invariants.
// No runtime, storage, or UI logic should be added here.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// MinParticipants is the floor for a conversation's participant set.
// A conversation never drops below this size after creation.
const MinParticipants = 2

// Conversation groups a set of participants around an append-only
// message sequence. Participants is kept sorted and duplicate-free,
// set semantics over user ids.
type Conversation struct {
	ID           uuid.UUID
	Participants []string
	CreatedAt    time.Time
	LastActivity time.Time
	MessageCount int64
}

func (c Conversation) HasParticipant(userID string) bool {
	_, found := slices.BinarySearch(c.Participants, userID)
	return found
}

// WithParticipant returns a copy whose participant set includes userID.
func (c Conversation) WithParticipant(userID string) Conversation {
	if c.HasParticipant(userID) {
		return c
	}
	members := append(slices.Clone(c.Participants), userID)
	slices.Sort(members)
	c.Participants = members
	return c
}

// WithoutParticipant returns a copy whose participant set excludes userID.
func (c Conversation) WithoutParticipant(userID string) Conversation {
	idx, found := slices.BinarySearch(c.Participants, userID)
	if !found {
		return c
	}
	c.Participants = slices.Delete(slices.Clone(c.Participants), idx, idx+1)
	return c
}
