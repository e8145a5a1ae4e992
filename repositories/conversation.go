//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"convo-core/contract"
	"convo-core/domain"
	errs "convo-core/errors"
	"convo-core/policy"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IConversationRepository is the Conversation Registry: it owns the
// conversation records and every participant-set mutation rule.
type IConversationRepository interface {
	Create(creatorID string, participantIDs []string) (domain.Conversation, error)
	AddParticipant(convID uuid.UUID, actorID, newID string) (domain.Conversation, error)
	RemoveParticipant(convID uuid.UUID, actorID, targetID string) (domain.Conversation, error)
	Get(convID uuid.UUID) (domain.Conversation, error)
	ListForUser(userID string) ([]domain.Conversation, error)
}

type ConversationRepository struct {
	db       *badger.DB
	identity IIdentityStore
	clock    contract.Clock
	log      *slog.Logger
}

func NewConversationRepository(db *badger.DB, identity IIdentityStore,
	clock contract.Clock, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, identity: identity, clock: clock, log: log}
}

// Create allocates a conversation whose participant set is the distinct
// union of participantIDs and the creator. Duplicate ids in the request
// are rejected rather than deduplicated; the creator appearing in the
// list is not a duplicate, it is simply unioned in.
func (c *ConversationRepository) Create(creatorID string, participantIDs []string) (domain.Conversation, error) {
	if len(lo.Uniq(participantIDs)) != len(participantIDs) {
		return domain.Conversation{}, fmt.Errorf("%w: duplicate participant ids", errs.ErrInvalidParticipants)
	}

	members := lo.Uniq(append(slices.Clone(participantIDs), creatorID))
	slices.Sort(members)
	if len(members) < domain.MinParticipants {
		return domain.Conversation{}, fmt.Errorf("%w: a conversation needs at least %d distinct members",
			errs.ErrInvalidParticipants, domain.MinParticipants)
	}

	for _, id := range members {
		ok, err := c.identity.Exists(id)
		if err != nil {
			return domain.Conversation{}, err
		}
		if !ok {
			return domain.Conversation{}, fmt.Errorf("%w: user %s does not resolve", errs.ErrInvalidParticipants, id)
		}
	}

	now := c.clock.Now()
	conv := domain.Conversation{
		ID:           uuid.New(),
		Participants: members,
		CreatedAt:    now,
		LastActivity: now,
	}
	data, err := encodeConversation(conv)
	if err != nil {
		return domain.Conversation{}, err
	}

	err = update(c.db, func(txn *badger.Txn) error {
		if err := txn.Set(conversationKey(conv.ID), data); err != nil {
			return err
		}
		for _, member := range conv.Participants {
			if err := txn.Set(userConvIndexKey(member, conv.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}

	c.log.Info("Conversation created", "conversation", conv.ID, "participants", len(conv.Participants))
	return conv, nil
}

// AddParticipant grows the participant set. The membership checks run
// against the record read inside the transaction, so a concurrent
// mutation forces a retry rather than a stale decision.
func (c *ConversationRepository) AddParticipant(convID uuid.UUID, actorID, newID string) (domain.Conversation, error) {
	ok, err := c.identity.Exists(newID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, fmt.Errorf("%w: %s", errs.ErrUnknownUser, newID)
	}

	var updated domain.Conversation
	err = update(c.db, func(txn *badger.Txn) error {
		conv, err := getConversation(txn, convID)
		if err != nil {
			return err
		}
		if decision := policy.CanManageParticipants(actorID, conv); !decision.Allowed {
			return fmt.Errorf("%w: %s", errs.ErrForbidden, decision.Reason)
		}
		if conv.HasParticipant(newID) {
			return fmt.Errorf("%w: %s", errs.ErrAlreadyParticipant, newID)
		}
		updated = conv.WithParticipant(newID)
		data, err := encodeConversation(updated)
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(convID), data); err != nil {
			return err
		}
		return txn.Set(userConvIndexKey(newID, convID), nil)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return updated, nil
}

// RemoveParticipant shrinks the participant set. The minimum-size
// invariant is re-validated at commit time: two racing removals cannot
// both observe a 3-member set and jointly drop it to 1.
func (c *ConversationRepository) RemoveParticipant(convID uuid.UUID, actorID, targetID string) (domain.Conversation, error) {
	var updated domain.Conversation
	err := update(c.db, func(txn *badger.Txn) error {
		conv, err := getConversation(txn, convID)
		if err != nil {
			return err
		}
		if decision := policy.CanManageParticipants(actorID, conv); !decision.Allowed {
			return fmt.Errorf("%w: %s", errs.ErrForbidden, decision.Reason)
		}
		if !conv.HasParticipant(targetID) {
			return fmt.Errorf("%w: %s", errs.ErrNotParticipant, targetID)
		}
		if len(conv.Participants) <= domain.MinParticipants {
			return fmt.Errorf("%w: removing %s would leave fewer than %d participants",
				errs.ErrMinimumParticipants, targetID, domain.MinParticipants)
		}
		updated = conv.WithoutParticipant(targetID)
		data, err := encodeConversation(updated)
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(convID), data); err != nil {
			return err
		}
		return txn.Delete(userConvIndexKey(targetID, convID))
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return updated, nil
}

func (c *ConversationRepository) Get(convID uuid.UUID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		conv, err = getConversation(txn, convID)
		return err
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// ListForUser resolves the idx:uc secondary index and orders the result
// by last activity, most recent first. The ordering is a product
// requirement, not a storage accident.
func (c *ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	prefix := userConvIndexScanPrefix(userID)

	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := it.Item().Key()[len(prefix):]
			convID, err := uuid.ParseBytes(rawID)
			if err != nil {
				return fmt.Errorf("corrupt index key %q: %w", it.Item().Key(), err)
			}
			conv, err := getConversation(txn, convID)
			if errors.Is(err, errs.ErrNotFound) {
				// Dangling index entry, e.g. half-cleaned cascade. Skip.
				c.log.Warn("Index points at missing conversation", "conversation", convID)
				continue
			}
			if err != nil {
				return err
			}
			conversations = append(conversations, conv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(conversations, func(i, j int) bool {
		if !conversations[i].LastActivity.Equal(conversations[j].LastActivity) {
			return conversations[i].LastActivity.After(conversations[j].LastActivity)
		}
		return conversations[i].ID.String() < conversations[j].ID.String()
	})
	return conversations, nil
}

func getConversation(txn *badger.Txn, convID uuid.UUID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(convID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, fmt.Errorf("%w: conversation %s", errs.ErrNotFound, convID)
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	var conv domain.Conversation
	err = item.Value(func(val []byte) error {
		conv, err = DecodeConversation(val)
		return err
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}
