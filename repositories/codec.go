package repositories

import (
	"errors"
	"fmt"
	"time"

	"convo-core/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Key schema. Message keys embed the zero-padded position so a plain
// prefix scan yields ledger order; "idx:" entries are secondary indexes
// and carry no value worth decoding.
//
//	conv:{conversation_id}                 -> conversationRecord
//	msg:{conversation_id}:{position:019d}  -> messageRecord
//	user:{user_id}                         -> userRecord
//	idx:uc:{user_id}:{conversation_id}     -> empty
const (
	ConversationKeyPrefix = "conv:"
	MessageKeyPrefix      = "msg:"
	UserKeyPrefix         = "user:"
	userConvIndexPrefix   = "idx:uc:"

	// positionDigits gives ~1e19 messages per conversation before the
	// lexicographic ordering of keys breaks down.
	positionDigits = 19
)

func conversationKey(id uuid.UUID) []byte {
	return []byte(ConversationKeyPrefix + id.String())
}

func messageKey(convID uuid.UUID, position int64) []byte {
	return fmt.Appendf(nil, "%s%s:%0*d", MessageKeyPrefix, convID, positionDigits, position)
}

func messagePrefix(convID uuid.UUID) []byte {
	return fmt.Appendf(nil, "%s%s:", MessageKeyPrefix, convID)
}

func userKey(id string) []byte {
	return []byte(UserKeyPrefix + id)
}

func userConvIndexKey(userID string, convID uuid.UUID) []byte {
	return fmt.Appendf(nil, "%s%s:%s", userConvIndexPrefix, userID, convID)
}

func userConvIndexScanPrefix(userID string) []byte {
	return fmt.Appendf(nil, "%s%s:", userConvIndexPrefix, userID)
}

// Disk records are decoupled from the domain structs so the stored
// shape can evolve independently. CBOR is the codec for every value.

type conversationRecord struct {
	ID           string    `cbor:"id"`
	Participants []string  `cbor:"participants"`
	CreatedAt    time.Time `cbor:"created_at"`
	LastActivity time.Time `cbor:"last_activity"`
	MessageCount int64     `cbor:"message_count"`
}

type messageRecord struct {
	ID             string    `cbor:"id"`
	ConversationID string    `cbor:"conversation_id"`
	SenderID       string    `cbor:"sender_id"`
	Body           string    `cbor:"body"`
	Lang           string    `cbor:"lang,omitempty"`
	Position       int64     `cbor:"position"`
	CreatedAt      time.Time `cbor:"created_at"`
}

type userRecord struct {
	ID          string    `cbor:"id"`
	DisplayName string    `cbor:"display_name"`
	CreatedAt   time.Time `cbor:"created_at"`
}

func encodeConversation(conv domain.Conversation) ([]byte, error) {
	return cbor.Marshal(conversationRecord{
		ID:           conv.ID.String(),
		Participants: conv.Participants,
		CreatedAt:    conv.CreatedAt,
		LastActivity: conv.LastActivity,
		MessageCount: conv.MessageCount,
	})
}

// DecodeConversation turns a stored value back into a domain record.
// Exported for the inspection tooling, which scans raw key space.
func DecodeConversation(value []byte) (domain.Conversation, error) {
	var rec conversationRecord
	if err := cbor.Unmarshal(value, &rec); err != nil {
		return domain.Conversation{}, err
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID:           id,
		Participants: rec.Participants,
		CreatedAt:    rec.CreatedAt.UTC(),
		LastActivity: rec.LastActivity.UTC(),
		MessageCount: rec.MessageCount,
	}, nil
}

func encodeMessage(msg domain.Message) ([]byte, error) {
	return cbor.Marshal(messageRecord{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		Lang:           msg.Lang,
		Position:       msg.Position,
		CreatedAt:      msg.CreatedAt,
	})
}

func DecodeMessage(value []byte) (domain.Message, error) {
	var rec messageRecord
	if err := cbor.Unmarshal(value, &rec); err != nil {
		return domain.Message{}, err
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Message{}, err
	}
	convID, err := uuid.Parse(rec.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       rec.SenderID,
		Body:           rec.Body,
		Lang:           rec.Lang,
		Position:       rec.Position,
		CreatedAt:      rec.CreatedAt.UTC(),
	}, nil
}

func encodeUser(user domain.User) ([]byte, error) {
	return cbor.Marshal(userRecord{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	})
}

func DecodeUser(value []byte) (domain.User, error) {
	var rec userRecord
	if err := cbor.Unmarshal(value, &rec); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt.UTC(),
	}, nil
}

// update runs fn inside a read-write transaction and retries it when
// the commit hits a snapshot conflict. fn must therefore be
// re-runnable: every read, check, and write happens inside it, which
// is what makes check-then-act sequences (minimum participants,
// position assignment) safe under concurrent commits.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}
