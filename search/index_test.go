package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"convo-core/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, flushEvery int) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default(), flushEvery, 10)
}

func message(convID uuid.UUID, sender, body string, position int64) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       sender,
		Body:           body,
		Position:       position,
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, int(position), 0, time.UTC),
	}
}

func TestMessageIndex_SearchIsFencedToConversation(t *testing.T) {
	req := require.New(t)
	idx := newTestIndex(t, 50)
	ctx := context.Background()

	roomA := uuid.New()
	roomB := uuid.New()
	req.NoError(idx.Index(message(roomA, "alice", "the quarterly invoice is late", 1)))
	req.NoError(idx.Index(message(roomA, "bob", "lunch plans anyone", 2)))
	req.NoError(idx.Index(message(roomB, "clara", "invoice paid yesterday", 1)))
	req.NoError(idx.Flush())

	hits, total, err := idx.Search(ctx, roomA, "invoice", 0)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal(roomA, hits[0].ConversationID)
	req.Equal("alice", hits[0].SenderID)
	req.Equal("the quarterly invoice is late", hits[0].Body)
	req.Equal(int64(1), hits[0].Position)
	req.Equal(time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC), hits[0].CreatedAt)
}

func TestMessageIndex_NoResults(t *testing.T) {
	req := require.New(t)
	idx := newTestIndex(t, 50)

	hits, total, err := idx.Search(context.Background(), uuid.New(), "nothing", 0)
	req.NoError(err)
	req.Zero(total)
	req.Empty(hits)
}

func TestMessageIndex_AutoFlushThreshold(t *testing.T) {
	req := require.New(t)
	idx := newTestIndex(t, 2)
	convID := uuid.New()

	// Two Index calls cross the threshold, no explicit Flush needed.
	req.NoError(idx.Index(message(convID, "alice", "first probe", 1)))
	req.NoError(idx.Index(message(convID, "alice", "second probe", 2)))

	hits, total, err := idx.Search(context.Background(), convID, "probe", 0)
	req.NoError(err)
	req.Equal(uint64(2), total)
	req.Len(hits, 2)
}
