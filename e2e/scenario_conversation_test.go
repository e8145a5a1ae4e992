package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"convo-core/domain"
	errs "convo-core/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type testConversationSuite struct {
	BaseSuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) TestFullConversationLifecycle() {
	ctx := context.Background()
	ids := s.SeedUsers("Uma", "Viktor", "Wen", "Xavier")
	u1, u2, u3, outsider := ids[0], ids[1], ids[2], ids[3]

	s.Step("Create a three-way conversation")
	summary, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u2, u3},
	})
	s.Require().NoError(err)
	s.Require().Len(summary.Participants, 3)
	s.Require().Nil(summary.LastMessage)
	s.Require().Zero(summary.MessageCount)
	convID := summary.ID

	s.Step("Any participant can post, not just the creator")
	msg, err := s.Service.PostMessage(ctx, domain.PostMessageCommand{
		ConversationID: convID,
		SenderID:       u2,
		Body:           "hi",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(1, msg.Position)

	s.Step("Summaries expose the tail message")
	summaries, err := s.Service.ListConversationsForUser(ctx, u1)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Require().EqualValues(1, summaries[0].MessageCount)
	s.Require().NotNil(summaries[0].LastMessage)
	s.Require().Equal("hi", summaries[0].LastMessage.Body)
	s.Require().Equal(u2, summaries[0].LastMessage.SenderID)

	s.Step("Outsiders are denied reads and writes")
	_, _, err = s.Service.ListMessages(ctx, domain.ListMessagesCommand{
		ConversationID: convID,
		RequesterID:    outsider,
	})
	s.Require().ErrorIs(err, errs.ErrForbidden)
	_, err = s.Service.PostMessage(ctx, domain.PostMessageCommand{
		ConversationID: convID,
		SenderID:       outsider,
		Body:           "let me in",
	})
	s.Require().ErrorIs(err, errs.ErrForbidden)

	s.Step("Shrinking to two participants is allowed")
	summary, err = s.Service.RemoveParticipant(ctx, domain.RemoveParticipantCommand{
		ConversationID: convID,
		ActorID:        u1,
		TargetID:       u3,
	})
	s.Require().NoError(err)
	s.Require().Len(summary.Participants, 2)

	s.Step("Shrinking below two is refused")
	_, err = s.Service.RemoveParticipant(ctx, domain.RemoveParticipantCommand{
		ConversationID: convID,
		ActorID:        u1,
		TargetID:       u2,
	})
	s.Require().ErrorIs(err, errs.ErrMinimumParticipants)

	s.Step("Removed participants lose access")
	_, _, err = s.Service.ListMessages(ctx, domain.ListMessagesCommand{
		ConversationID: convID,
		RequesterID:    u3,
	})
	s.Require().ErrorIs(err, errs.ErrForbidden)
}

func (s *testConversationSuite) TestPaginationOldestFirst() {
	ctx := context.Background()
	ids := s.SeedUsers("Uma", "Viktor")
	u1, u2 := ids[0], ids[1]

	summary, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u2},
	})
	s.Require().NoError(err)

	s.Step("Post five messages")
	for i := 1; i <= 5; i++ {
		_, err := s.Service.PostMessage(ctx, domain.PostMessageCommand{
			ConversationID: summary.ID,
			SenderID:       u1,
			Body:           fmt.Sprintf("message %d", i),
		})
		s.Require().NoError(err)
	}

	s.Step("Walk pages with the cursor")
	var collected []domain.Message
	var cursor *string
	for {
		page, next, err := s.Service.ListMessages(ctx, domain.ListMessagesCommand{
			ConversationID: summary.ID,
			RequesterID:    u2,
			Cursor:         cursor,
		})
		s.Require().NoError(err)
		s.Require().LessOrEqual(len(page), s.Config.PageLimit)
		collected = append(collected, page...)
		if next == nil {
			break
		}
		cursor = next
	}
	s.Require().Len(collected, 5)
	for i, m := range collected {
		s.Require().EqualValues(i+1, m.Position)
		s.Require().Equal(fmt.Sprintf("message %d", i+1), m.Body)
	}
}

func (s *testConversationSuite) TestConcurrentSendersKeepPositionsDense() {
	ctx := context.Background()
	ids := s.SeedUsers("Uma", "Viktor")
	u1, u2 := ids[0], ids[1]

	summary, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u2},
	})
	s.Require().NoError(err)

	s.Step(fmt.Sprintf("Fire %d concurrent posts", s.Config.ConcurrentSenders))
	positions := make(chan int64, s.Config.ConcurrentSenders)
	failures := make(chan error, s.Config.ConcurrentSenders)
	var wg sync.WaitGroup
	for i := 0; i < s.Config.ConcurrentSenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sender := u1
			if n%2 == 0 {
				sender = u2
			}
			msg, err := s.Service.PostMessage(ctx, domain.PostMessageCommand{
				ConversationID: summary.ID,
				SenderID:       sender,
				Body:           fmt.Sprintf("racer %d", n),
			})
			if err != nil {
				failures <- err
				return
			}
			positions <- msg.Position
		}(i)
	}
	wg.Wait()
	close(positions)
	close(failures)
	for err := range failures {
		s.Require().NoError(err)
	}

	got := lo.ChannelToSlice(positions)
	s.Require().Len(lo.Uniq(got), s.Config.ConcurrentSenders)
	s.Require().EqualValues(s.Config.ConcurrentSenders, lo.Max(got))

	s.Step("Activity counter matches the dense tail")
	summaries, err := s.Service.ListConversationsForUser(ctx, u1)
	s.Require().NoError(err)
	s.Require().EqualValues(s.Config.ConcurrentSenders, summaries[0].MessageCount)
}

func (s *testConversationSuite) TestRecentActivityOrdering() {
	ctx := context.Background()
	ids := s.SeedUsers("Uma", "Viktor", "Wen")
	u1, u2, u3 := ids[0], ids[1], ids[2]

	first, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u2},
	})
	s.Require().NoError(err)
	second, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u3},
	})
	s.Require().NoError(err)

	s.Step("A new message bumps its conversation to the top")
	_, err = s.Service.PostMessage(ctx, domain.PostMessageCommand{
		ConversationID: first.ID,
		SenderID:       u2,
		Body:           "bump",
	})
	s.Require().NoError(err)

	summaries, err := s.Service.ListConversationsForUser(ctx, u1)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)
	s.Require().Equal(first.ID, summaries[0].ID)
	s.Require().Equal(second.ID, summaries[1].ID)

	s.Step("Only the poster's conversations are listed")
	summaries, err = s.Service.ListConversationsForUser(ctx, u3)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Require().Equal(second.ID, summaries[0].ID)
}

func (s *testConversationSuite) TestModerationAndSearchFlow() {
	ctx := context.Background()
	ids := s.SeedUsers("Uma", "Viktor", "Wen")
	u1, u2, outsider := ids[0], ids[1], ids[2]

	summary, err := s.Service.CreateConversation(ctx, domain.CreateConversationCommand{
		CreatorID:      u1,
		ParticipantIDs: []string{u2},
	})
	s.Require().NoError(err)

	s.Step("Censored terms are masked before storage")
	msg, err := s.Service.PostMessage(ctx, domain.PostMessageCommand{
		ConversationID: summary.ID,
		SenderID:       u1,
		Body:           "a badger bit me",
	})
	s.Require().NoError(err)
	s.Require().Equal("a ****** bit me", msg.Body)

	s.Step("Search finds messages inside the conversation")
	_, err = s.Service.PostMessage(ctx, domain.PostMessageCommand{
		ConversationID: summary.ID,
		SenderID:       u2,
		Body:           "the quarterly report is ready",
	})
	s.Require().NoError(err)

	hits, total, err := s.Service.SearchMessages(ctx, domain.SearchMessagesCommand{
		ConversationID: summary.ID,
		RequesterID:    u1,
		Query:          "quarterly report",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(1, total)
	s.Require().Len(hits, 1)
	s.Require().Equal(u2, hits[0].SenderID)

	s.Step("Search is policy-fenced like any other read")
	_, _, err = s.Service.SearchMessages(ctx, domain.SearchMessagesCommand{
		ConversationID: summary.ID,
		RequesterID:    outsider,
		Query:          "report",
	})
	s.Require().ErrorIs(err, errs.ErrForbidden)
}
