package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = fmt.Errorf("not found")
	ErrForbidden           = fmt.Errorf("forbidden")
	ErrInvalidParticipants = fmt.Errorf("invalid participants")
	ErrUnknownUser         = fmt.Errorf("unknown user")
	ErrAlreadyParticipant  = fmt.Errorf("already a participant")
	ErrNotParticipant      = fmt.Errorf("not a participant")
	ErrMinimumParticipants = fmt.Errorf("minimum participants")
	ErrEmptyBody           = fmt.Errorf("empty message body")
	ErrInvalidCommand      = fmt.Errorf("invalid command")
)

// Kind maps an error chain to its stable, machine-checkable kind.
// Transport adapters key on these strings instead of error text.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidParticipants):
		return "invalid_participants"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrAlreadyParticipant):
		return "already_participant"
	case errors.Is(err, ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, ErrMinimumParticipants):
		return "minimum_participants"
	case errors.Is(err, ErrEmptyBody):
		return "empty_body"
	case errors.Is(err, ErrInvalidCommand):
		return "invalid_command"
	default:
		return "internal"
	}
}
