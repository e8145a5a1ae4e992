package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversation_ParticipantSet(t *testing.T) {
	conv := Conversation{Participants: []string{"alice", "bob"}}

	require.True(t, conv.HasParticipant("alice"))
	require.False(t, conv.HasParticipant("clara"))

	grown := conv.WithParticipant("clara")
	require.Equal(t, []string{"alice", "bob", "clara"}, grown.Participants)
	// Original snapshot is untouched
	require.Equal(t, []string{"alice", "bob"}, conv.Participants)

	// Adding an existing member is a no-op, set semantics
	require.Equal(t, grown.Participants, grown.WithParticipant("bob").Participants)

	shrunk := grown.WithoutParticipant("bob")
	require.Equal(t, []string{"alice", "clara"}, shrunk.Participants)
	require.Equal(t, shrunk.Participants, shrunk.WithoutParticipant("nobody").Participants)
}
