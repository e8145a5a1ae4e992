package repositories

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	errs "convo-core/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Append(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	clock := newStubClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	users := NewUserRepository(db, clock)
	conversations := NewConversationRepository(db, users, clock, slog.Default())
	repo := NewMessageRepository(db, clock, slog.Default(), nil)

	ids := seedUsers(t, users, "Alice", "Bob")
	alice, bob := ids[0], ids[1]
	conv, err := conversations.Create(alice, []string{bob})
	req.NoError(err)

	t.Run("should assign dense positions and advance last_activity", func(t *testing.T) {
		req := require.New(t)
		clock.Advance(time.Minute)
		first, err := repo.Append(conv.ID, alice, "hi", "en")
		req.NoError(err)
		req.Equal(int64(1), first.Position)
		req.Equal(clock.Now(), first.CreatedAt)

		clock.Advance(time.Minute)
		second, err := repo.Append(conv.ID, bob, "hello back", "en")
		req.NoError(err)
		req.Equal(int64(2), second.Position)

		fetched, err := conversations.Get(conv.ID)
		req.NoError(err)
		req.Equal(second.CreatedAt, fetched.LastActivity)
		req.Equal(int64(2), fetched.MessageCount)
	})

	t.Run("should clamp timestamps when the clock steps back", func(t *testing.T) {
		req := require.New(t)
		clock.Advance(-10 * time.Minute)
		msg, err := repo.Append(conv.ID, alice, "from the past", "en")
		req.NoError(err)

		fetched, err := conversations.Get(conv.ID)
		req.NoError(err)
		req.Equal(fetched.LastActivity, msg.CreatedAt)

		last, err := repo.LastMessage(conv.ID)
		req.NoError(err)
		req.False(last.CreatedAt.Before(msg.CreatedAt))
		clock.Advance(20 * time.Minute)
	})

	t.Run("should reject empty and whitespace-only bodies", func(t *testing.T) {
		req := require.New(t)
		_, err := repo.Append(conv.ID, alice, "", "")
		req.ErrorIs(err, errs.ErrEmptyBody)
		_, err = repo.Append(conv.ID, alice, "   \t\n", "")
		req.ErrorIs(err, errs.ErrEmptyBody)
	})

	t.Run("should reject senders outside the participant set", func(t *testing.T) {
		req := require.New(t)
		count, err := repo.Count(conv.ID)
		req.NoError(err)

		_, err = repo.Append(conv.ID, "mallory", "let me in", "en")
		req.ErrorIs(err, errs.ErrForbidden)

		after, err := repo.Count(conv.ID)
		req.NoError(err)
		req.Equal(count, after)
	})

	t.Run("should fail on an absent conversation", func(t *testing.T) {
		req := require.New(t)
		_, err := repo.Append(uuid.New(), alice, "hello?", "en")
		req.ErrorIs(err, errs.ErrNotFound)
	})
}

func TestMessageRepository_ConcurrentAppends(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	clock := newStubClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	users := NewUserRepository(db, clock)
	conversations := NewConversationRepository(db, users, clock, slog.Default())
	repo := NewMessageRepository(db, clock, slog.Default(), nil)

	const senders = 16
	names := make([]string, senders)
	for i := range names {
		names[i] = fmt.Sprintf("user-%02d", i)
	}
	ids := seedUsers(t, users, names...)
	conv, err := conversations.Create(ids[0], ids[1:])
	req.NoError(err)

	var wg sync.WaitGroup
	results := make(chan int64, senders)
	for _, sender := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			msg, err := repo.Append(conv.ID, sender, "racing "+sender, "en")
			if err != nil {
				t.Error(err)
				return
			}
			results <- msg.Position
		}()
	}
	wg.Wait()
	close(results)

	positions := lo.ChannelToSlice(results)
	req.Len(positions, senders)
	req.Len(lo.Uniq(positions), senders, "positions must be distinct")
	req.Equal(int64(senders), lo.Max(positions), "positions must be dense from 1..N")

	fetched, err := conversations.Get(conv.ID)
	req.NoError(err)
	req.Equal(int64(senders), fetched.MessageCount)

	// Stored order must be strictly increasing in position and
	// non-decreasing in time, and last_activity matches the tail.
	messages, _, err := repo.ListByConversation(conv.ID, ids[0], nil)
	req.NoError(err)
	req.Len(messages, senders)
	for i, msg := range messages {
		req.Equal(int64(i+1), msg.Position)
		if i > 0 {
			req.False(msg.CreatedAt.Before(messages[i-1].CreatedAt))
		}
	}
	req.Equal(messages[senders-1].CreatedAt, fetched.LastActivity)
}

func TestMessageRepository_ListByConversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	clock := newStubClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	users := NewUserRepository(db, clock)
	conversations := NewConversationRepository(db, users, clock, slog.Default())

	ids := seedUsers(t, users, "Alice", "Bob")
	alice, bob := ids[0], ids[1]
	conv, err := conversations.Create(alice, []string{bob})
	req.NoError(err)

	limit := 2
	repo := NewMessageRepository(db, clock, slog.Default(), &limit)
	bodies := []string{"one", "two", "three", "four", "five"}
	for _, body := range bodies {
		clock.Advance(time.Second)
		_, err := repo.Append(conv.ID, alice, body, "en")
		req.NoError(err)
	}

	t.Run("should page oldest-first through the cursor", func(t *testing.T) {
		req := require.New(t)
		var collected []string
		var cursor *string
		for {
			page, next, err := repo.ListByConversation(conv.ID, bob, cursor)
			req.NoError(err)
			if len(page) == 0 {
				break
			}
			req.LessOrEqual(len(page), limit)
			for _, msg := range page {
				collected = append(collected, msg.Body)
			}
			cursor = next
		}
		req.Equal(bodies, collected)
	})

	t.Run("should deny non-participants without leaking content", func(t *testing.T) {
		req := require.New(t)
		messages, cursor, err := repo.ListByConversation(conv.ID, "mallory", nil)
		req.ErrorIs(err, errs.ErrForbidden)
		req.Nil(messages)
		req.Nil(cursor)
	})

	t.Run("should fail on an absent conversation", func(t *testing.T) {
		req := require.New(t)
		_, _, err := repo.ListByConversation(uuid.New(), alice, nil)
		req.ErrorIs(err, errs.ErrNotFound)
	})
}

func TestMessageRepository_TailReads(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	clock := newStubClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	users := NewUserRepository(db, clock)
	conversations := NewConversationRepository(db, users, clock, slog.Default())
	repo := NewMessageRepository(db, clock, slog.Default(), nil)

	ids := seedUsers(t, users, "Alice", "Bob")
	alice, bob := ids[0], ids[1]
	conv, err := conversations.Create(alice, []string{bob})
	req.NoError(err)

	t.Run("should report an empty tail on a fresh conversation", func(t *testing.T) {
		req := require.New(t)
		last, err := repo.LastMessage(conv.ID)
		req.NoError(err)
		req.Nil(last)

		count, err := repo.Count(conv.ID)
		req.NoError(err)
		req.Zero(count)
	})

	t.Run("should track the tail as messages land", func(t *testing.T) {
		req := require.New(t)
		for i := 1; i <= 12; i++ {
			clock.Advance(time.Second)
			_, err := repo.Append(conv.ID, bob, fmt.Sprintf("message %d", i), "en")
			req.NoError(err)
		}

		last, err := repo.LastMessage(conv.ID)
		req.NoError(err)
		req.NotNil(last)
		req.Equal("message 12", last.Body)
		req.Equal(int64(12), last.Position)

		count, err := repo.Count(conv.ID)
		req.NoError(err)
		req.Equal(int64(12), count)
	})

	t.Run("should fail on an absent conversation", func(t *testing.T) {
		req := require.New(t)
		_, err := repo.LastMessage(uuid.New())
		req.ErrorIs(err, errs.ErrNotFound)
		_, err = repo.Count(uuid.New())
		req.ErrorIs(err, errs.ErrNotFound)
	})
}
