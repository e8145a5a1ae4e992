package policy

import (
	"testing"

	"convo-core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPolicy_ParticipantsOnly(t *testing.T) {
	conv := domain.Conversation{
		ID:           uuid.New(),
		Participants: []string{"alice", "bob"},
	}

	checks := map[string]func(string, domain.Conversation) Decision{
		"read":   CanRead,
		"post":   CanPost,
		"manage": CanManageParticipants,
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			req.True(check("alice", conv).Allowed)
			req.True(check("bob", conv).Allowed)

			denied := check("mallory", conv)
			req.False(denied.Allowed)
			req.Contains(denied.Reason, "mallory")
			req.Contains(denied.Reason, conv.ID.String())
		})
	}
}

func TestPolicy_NoSideEffects(t *testing.T) {
	conv := domain.Conversation{Participants: []string{"alice", "bob"}}
	_ = CanRead("mallory", conv)
	_ = CanManageParticipants("alice", conv)
	require.Equal(t, []string{"alice", "bob"}, conv.Participants)
}
