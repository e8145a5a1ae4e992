package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"convo-core/domain"
	errs "convo-core/errors"
	"convo-core/moderation"
	"convo-core/policy"
	"convo-core/repositories"
	"convo-core/search"

	"github.com/abadojack/whatlanggo"
)

// PreviewLength bounds the last-message preview in summaries. Display
// contract only; stored bodies are never truncated.
const (
	PreviewLength = 100
	previewMarker = "..."
)

type IConversationService interface {
	CreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.ConversationSummary, error)
	AddParticipant(ctx context.Context, cmd domain.AddParticipantCommand) (domain.ConversationSummary, error)
	RemoveParticipant(ctx context.Context, cmd domain.RemoveParticipantCommand) (domain.ConversationSummary, error)
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	ListMessages(ctx context.Context, cmd domain.ListMessagesCommand) ([]domain.Message, *string, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]domain.Message, uint64, error)
}

type ConversationService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	index         search.IMessageIndex
	moderator     *moderation.Moderator
	log           *slog.Logger
}

// NewConversationService wires the registry, the ledger, and the
// auxiliary views together. moderator may be nil to disable censoring.
func NewConversationService(conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository, index search.IMessageIndex,
	moderator *moderation.Moderator, log *slog.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		index:         index,
		moderator:     moderator,
		log:           log,
	}
}

func (s *ConversationService) CreateConversation(_ context.Context, cmd domain.CreateConversationCommand) (domain.ConversationSummary, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.ConversationSummary{}, fmt.Errorf("%w: %v", errs.ErrInvalidParticipants, err)
	}
	conv, err := s.conversations.Create(cmd.CreatorID, cmd.ParticipantIDs)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	return s.summarize(conv)
}

func (s *ConversationService) AddParticipant(_ context.Context, cmd domain.AddParticipantCommand) (domain.ConversationSummary, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.ConversationSummary{}, fmt.Errorf("%w: %v", errs.ErrInvalidCommand, err)
	}
	conv, err := s.conversations.AddParticipant(cmd.ConversationID, cmd.ActorID, cmd.NewParticipantID)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	return s.summarize(conv)
}

func (s *ConversationService) RemoveParticipant(_ context.Context, cmd domain.RemoveParticipantCommand) (domain.ConversationSummary, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.ConversationSummary{}, fmt.Errorf("%w: %v", errs.ErrInvalidCommand, err)
	}
	conv, err := s.conversations.RemoveParticipant(cmd.ConversationID, cmd.ActorID, cmd.TargetID)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	return s.summarize(conv)
}

// PostMessage runs the write pipeline: censor, tag the language, append
// to the ledger, then feed the search index. Indexing failures do not
// fail the post, the index is an auxiliary view and catches up on the
// next flush.
func (s *ConversationService) PostMessage(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errs.ErrInvalidCommand, err)
	}

	body := cmd.Body
	if s.moderator != nil {
		censored, matched := s.moderator.Censor(body)
		if len(matched) > 0 {
			s.log.Warn("Message body censored",
				"conversation", cmd.ConversationID, "sender", cmd.SenderID, "terms", len(matched))
			body = censored
		}
	}

	lang := whatlanggo.Detect(body).Lang.Iso6391()

	msg, err := s.messages.Append(cmd.ConversationID, cmd.SenderID, body, lang)
	if err != nil {
		return domain.Message{}, err
	}

	if err := s.index.Index(msg); err != nil {
		s.log.Error("Failed to index message", "message", msg.ID, "err", err)
	}
	return msg, nil
}

func (s *ConversationService) ListMessages(_ context.Context, cmd domain.ListMessagesCommand) ([]domain.Message, *string, error) {
	if err := validate.Struct(cmd); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrInvalidCommand, err)
	}
	return s.messages.ListByConversation(cmd.ConversationID, cmd.RequesterID, cmd.Cursor)
}

func (s *ConversationService) ListConversationsForUser(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", errs.ErrInvalidCommand)
	}
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary, err := s.summarize(conv)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// SearchMessages checks the read policy against the live conversation
// before touching the index, then flushes pending documents so a just
// posted message is findable.
func (s *ConversationService) SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]domain.Message, uint64, error) {
	if err := validate.Struct(cmd); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrInvalidCommand, err)
	}
	conv, err := s.conversations.Get(cmd.ConversationID)
	if err != nil {
		return nil, 0, err
	}
	if decision := policy.CanRead(cmd.RequesterID, conv); !decision.Allowed {
		return nil, 0, fmt.Errorf("%w: %s", errs.ErrForbidden, decision.Reason)
	}
	if err := s.index.Flush(); err != nil {
		return nil, 0, err
	}
	return s.index.Search(ctx, cmd.ConversationID, cmd.Query, cmd.Page)
}

func (s *ConversationService) summarize(conv domain.Conversation) (domain.ConversationSummary, error) {
	summary := domain.ConversationSummary{
		ID:           conv.ID,
		Participants: slices.Clone(conv.Participants),
		MessageCount: conv.MessageCount,
		CreatedAt:    conv.CreatedAt,
		LastActivity: conv.LastActivity,
	}
	if conv.MessageCount == 0 {
		return summary, nil
	}

	last, err := s.messages.LastMessage(conv.ID)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	if last != nil {
		summary.LastMessage = &domain.MessagePreview{
			SenderID: last.SenderID,
			Body:     truncatePreview(last.Body),
			At:       last.CreatedAt,
		}
	}
	return summary, nil
}

func truncatePreview(body string) string {
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength]) + previewMarker
}
