package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind_UnwrapsChains(t *testing.T) {
	req := require.New(t)

	wrapped := fmt.Errorf("removing user bob: %w", ErrMinimumParticipants)
	req.Equal("minimum_participants", Kind(wrapped))

	deep := fmt.Errorf("service: %w", fmt.Errorf("registry: %w", ErrForbidden))
	req.Equal("forbidden", Kind(deep))

	req.Equal("internal", Kind(fmt.Errorf("disk on fire")))
}
