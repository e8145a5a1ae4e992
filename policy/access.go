// Package policy holds the pure access decisions of the messaging core.
// Functions here evaluate an actor against a conversation snapshot and
// never mutate state; enforcement belongs to the callers.
package policy

import (
	"fmt"

	"convo-core/domain"
)

// Decision is the outcome of a policy evaluation. Reason is only set
// on denial and is safe to surface to callers.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanRead reports whether actorID may read messages of conv.
func CanRead(actorID string, conv domain.Conversation) Decision {
	return membership(actorID, conv, "read")
}

// CanPost reports whether actorID may append messages to conv.
func CanPost(actorID string, conv domain.Conversation) Decision {
	return membership(actorID, conv, "post in")
}

// CanManageParticipants reports whether actorID may add or remove
// participants. Any participant may, there is no privileged role.
func CanManageParticipants(actorID string, conv domain.Conversation) Decision {
	return membership(actorID, conv, "manage participants of")
}

func membership(actorID string, conv domain.Conversation, verb string) Decision {
	if conv.HasParticipant(actorID) {
		return Decision{Allowed: true}
	}
	return Decision{
		Reason: fmt.Sprintf("user %s is not a participant and cannot %s conversation %s", actorID, verb, conv.ID),
	}
}
