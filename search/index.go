// Package search maintains a bluge full-text index over stored message
// bodies. The index is an auxiliary view: it is written after the
// ledger commit and is eventually consistent with it, never part of
// the consistency core.
//
//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_message_index.go -package=mocks
package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"convo-core/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type IMessageIndex interface {
	Index(msg domain.Message) error
	Flush() error
	Search(ctx context.Context, convID uuid.UUID, terms string, page int) ([]domain.Message, uint64, error)
}

type MessageIndex struct {
	mu         sync.Mutex
	writer     *bluge.Writer
	log        *slog.Logger
	pending    *bluge.Batch
	buffered   int
	flushEvery int
	pageSize   int
}

// NewMessageIndex buffers documents and commits them to the writer
// every flushEvery Index calls; Flush forces the commit.
func NewMessageIndex(writer *bluge.Writer, log *slog.Logger, flushEvery, pageSize int) *MessageIndex {
	return &MessageIndex{
		writer:     writer,
		log:        log,
		pending:    bluge.NewBatch(),
		flushEvery: flushEvery,
		pageSize:   pageSize,
	}
}

func (s *MessageIndex) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("conversation", msg.ConversationID.String()).StoreValue()).
		AddField(bluge.NewTextField("body", msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.SenderID).StoreValue()).
		AddField(bluge.NewStoredOnlyField("position", []byte(strconv.FormatInt(msg.Position, 10)))).
		AddField(bluge.NewStoredOnlyField("at", []byte(strconv.FormatInt(msg.CreatedAt.UnixNano(), 10))))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Update(doc.ID(), doc)
	s.buffered++
	if s.buffered >= s.flushEvery {
		return s.flushLocked()
	}
	return nil
}

func (s *MessageIndex) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *MessageIndex) flushLocked() error {
	if s.buffered == 0 {
		return nil
	}
	if err := s.writer.Batch(s.pending); err != nil {
		return err
	}
	s.log.Debug("Index batch committed", "documents", s.buffered)
	s.pending.Reset()
	s.buffered = 0
	return nil
}

// Search runs a match query over bodies, fenced to one conversation.
// Access control is the caller's job; the index only filters. Results
// are ranked by score, page is 0-based.
func (s *MessageIndex) Search(ctx context.Context, convID uuid.UUID, terms string, page int) ([]domain.Message, uint64, error) {
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(convID.String()).SetField("conversation")).
		AddMust(bluge.NewMatchQuery(terms).SetField("body"))

	request := bluge.NewTopNSearch(s.pageSize, query).
		SetFrom(page * s.pageSize).
		WithStandardAggregations()

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = reader.Close()
	}()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var hits []domain.Message
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, 0, err
		}
		if match == nil {
			break
		}
		var hit domain.Message
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID, _ = uuid.ParseBytes(value)
			case "conversation":
				hit.ConversationID, _ = uuid.ParseBytes(value)
			case "body":
				hit.Body = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "position":
				hit.Position, _ = strconv.ParseInt(string(value), 10, 64)
			case "at":
				nanos, _ := strconv.ParseInt(string(value), 10, 64)
				hit.CreatedAt = time.Unix(0, nanos).UTC()
			}
			return true
		})
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, hit)
	}

	return hits, iterator.Aggregations().Count(), nil
}
