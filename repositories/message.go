//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"strings"

	"convo-core/contract"
	"convo-core/domain"
	errs "convo-core/errors"
	"convo-core/policy"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// IMessageRepository is the Message Ledger: append-only message records
// plus the ordering and freshness contract of their conversation.
type IMessageRepository interface {
	Append(convID uuid.UUID, senderID, body, lang string) (domain.Message, error)
	ListByConversation(convID uuid.UUID, requesterID string, cursor *string) ([]domain.Message, *string, error)
	LastMessage(convID uuid.UUID) (*domain.Message, error)
	Count(convID uuid.UUID) (int64, error)
}

type MessageRepository struct {
	db            *badger.DB
	clock         contract.Clock
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, clock contract.Clock, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, clock: clock, log: log, limitMessages: limitMessages}
}

// Append is the single cross-entity write of the core and runs as one
// transaction: read the conversation, check the sender against the
// current participant set, take the next position, write the message,
// and advance last_activity. A concurrent append to the same
// conversation conflicts on the conversation key and re-runs the whole
// body, so positions come out dense and strictly increasing.
//
// The timestamp is clamped to the conversation's last_activity so the
// per-conversation sequence stays monotonic even if the clock steps
// backwards between two appends.
func (m *MessageRepository) Append(convID uuid.UUID, senderID, body, lang string) (domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return domain.Message{}, fmt.Errorf("%w: message body is empty or whitespace-only", errs.ErrEmptyBody)
	}

	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		conv, err := getConversation(txn, convID)
		if err != nil {
			return err
		}
		if decision := policy.CanPost(senderID, conv); !decision.Allowed {
			return fmt.Errorf("%w: %s", errs.ErrForbidden, decision.Reason)
		}

		at := m.clock.Now()
		if at.Before(conv.LastActivity) {
			at = conv.LastActivity
		}
		msg = domain.Message{
			ID:             uuid.New(),
			ConversationID: convID,
			SenderID:       senderID,
			Body:           body,
			Lang:           lang,
			Position:       conv.MessageCount + 1,
			CreatedAt:      at,
		}
		msgData, err := encodeMessage(msg)
		if err != nil {
			return err
		}
		if err := txn.Set(messageKey(convID, msg.Position), msgData); err != nil {
			return err
		}

		conv.MessageCount = msg.Position
		conv.LastActivity = at
		convData, err := encodeConversation(conv)
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(convID), convData)
	})
	if err != nil {
		return domain.Message{}, err
	}

	m.log.Debug("Message appended",
		"conversation", convID, "sender", senderID, "position", msg.Position)
	return msg, nil
}

// ListByConversation returns messages oldest-first. The cursor is the
// key suffix of the last message of the previous page; passing it back
// resumes the scan right after it. A nil returned cursor means the
// page was empty.
func (m *MessageRepository) ListByConversation(convID uuid.UUID, requesterID string, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		conv, err := getConversation(txn, convID)
		if err != nil {
			return err
		}
		if decision := policy.CanRead(requesterID, conv); !decision.Allowed {
			return fmt.Errorf("%w: %s", errs.ErrForbidden, decision.Reason)
		}

		prefix := messagePrefix(convID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append(seekKey, []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				msg, err := DecodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, nil, nil
	}
	return messages, &lastKey, nil
}

// LastMessage fetches the ledger tail with a single reverse seek; it
// never scans the sequence. Returns nil when the conversation exists
// but holds no messages yet.
func (m *MessageRepository) LastMessage(convID uuid.UUID) (*domain.Message, error) {
	var msg *domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		if _, err := getConversation(txn, convID); err != nil {
			return err
		}

		prefix := messagePrefix(convID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible position, then step back into
		// the prefix.
		seekKey := append(prefix, []byte(strings.Repeat("9", positionDigits))...)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(value []byte) error {
			decoded, err := DecodeMessage(value)
			if err != nil {
				return err
			}
			msg = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Count reads the counter carried on the conversation record, O(1).
func (m *MessageRepository) Count(convID uuid.UUID) (int64, error) {
	var count int64
	err := m.db.View(func(txn *badger.Txn) error {
		conv, err := getConversation(txn, convID)
		if err != nil {
			return err
		}
		count = conv.MessageCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
