//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marketplace-chat/domain/chat"

	"github.com/blugelabs/bluge"
	segment "github.com/blugelabs/bluge_segment_api"
	"github.com/google/uuid"
)

const (
	fieldBody        = "body"
	fieldSender      = "sender"
	fieldRecipient   = "recipient"
	fieldListing     = "listing"
	fieldParticipant = "participant"
	fieldCreatedAt   = "created_at"
)

type IMessageIndex interface {
	Index(ctx context.Context, message chat.Message) error
	Search(ctx context.Context, userID chat.Identity, terms string, limit int) ([]chat.Message, uint64, error)
}

// MessageIndex is the full-text index of persisted messages.
// It is fed asynchronously, so a message may be searchable slightly after delivery.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces the document of a message.
func (i *MessageIndex) Index(ctx context.Context, message chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(fieldBody, message.Body).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSender, message.SenderID.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldRecipient, message.RecipientID.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldListing, message.ListingID.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldParticipant, message.SenderID.String())).
		AddField(bluge.NewKeywordField(fieldParticipant, message.RecipientID.String())).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, message.CreatedAt).StoreValue().Sortable())

	return i.writer.Update(doc.ID(), doc)
}

// Search returns the messages of userID matching terms, newest first, with the total hit count.
func (i *MessageIndex) Search(ctx context.Context, userID chat.Identity, terms string, limit int) ([]chat.Message, uint64, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, 0, nil
	}
	if limit <= 0 {
		limit = 10
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("open index reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField(fieldBody)).
		AddMust(bluge.NewTermQuery(userID.String()).SetField(fieldParticipant))
	request := bluge.NewTopNSearch(limit, query).
		SortBy([]string{"-" + fieldCreatedAt}).
		WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var messages []chat.Message
	match, err := iterator.Next()
	for err == nil && match != nil {
		message, visitErr := toMessage(match)
		if visitErr != nil {
			return nil, 0, visitErr
		}
		messages = append(messages, message)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}

	total := iterator.Aggregations().Count()
	i.log.Debug("Message search", "user_id", userID, "terms", terms, "total", total)
	return messages, total, nil
}

type storedFieldVisitor interface {
	VisitStoredFields(visitor segment.StoredFieldVisitor) error
}

func toMessage(match storedFieldVisitor) (chat.Message, error) {
	var (
		message  chat.Message
		parseErr error
	)
	parse := func(value []byte) uuid.UUID {
		id, err := uuid.ParseBytes(value)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return id
	}

	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case "_id":
			message.ID = parse(value)
		case fieldSender:
			message.SenderID = parse(value)
		case fieldRecipient:
			message.RecipientID = parse(value)
		case fieldListing:
			message.ListingID = parse(value)
		case fieldBody:
			message.Body = string(value)
		case fieldCreatedAt:
			createdAt, err := bluge.DecodeDateTime(value)
			if err != nil && parseErr == nil {
				parseErr = err
			}
			message.CreatedAt = createdAt.UTC()
		}
		return true
	})
	if err != nil {
		return chat.Message{}, err
	}
	if parseErr != nil {
		return chat.Message{}, fmt.Errorf("decode indexed message: %w", parseErr)
	}
	return message, nil
}
