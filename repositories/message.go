//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marketplace-chat/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	Append(ctx context.Context, message chat.Message) error
	GetConversation(ctx context.Context, query chat.ConversationQuery) ([]chat.Message, error)
	GetAll(ctx context.Context, limit int) ([]chat.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// conversationPrefix is shared by both directions of a thread about a listing.
func conversationPrefix(listingID chat.ListingID, a, b chat.Identity) string {
	low, high := chat.OrderedPair(a, b)
	return fmt.Sprintf("%s%s:%s:%s:", messagePrefix, listingID, low, high)
}

// messageKey is formatted as "msg:{listing}:{low_user}:{high_user}:{timestamp_padded}:{uuid}" to:
//  1. Keep a thread contiguous whatever the direction of each message.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using the message id as a tie breaker if two messages
//     arrive at the same nanosecond.
func messageKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(m.ListingID, m.SenderID, m.RecipientID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

// Append persists a message. Badger is opened with synchronous writes, so a nil
// error means the record reached the disk.
func (m MessageRepository) Append(ctx context.Context, message chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message.ID == uuid.Nil {
		return fmt.Errorf("message without id")
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), marshalMessage(message))
	})
}

// GetConversation returns the latest messages of a thread, newest first.
// It stops collecting messages once the configured limitMessages is reached.
func (m MessageRepository) GetConversation(ctx context.Context, query chat.ConversationQuery) ([]chat.Message, error) {
	prefix := conversationPrefix(query.ListingID, query.UserID, query.OtherID)
	return m.scanReverse(ctx, prefix, m.limit(0))
}

// GetAll returns stored messages in reverse key order, newest first within each thread.
// Used by the inspection tools.
func (m MessageRepository) GetAll(ctx context.Context, limit int) ([]chat.Message, error) {
	return m.scanReverse(ctx, messagePrefix, m.limit(limit))
}

func (m MessageRepository) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	if m.limitMessages != nil {
		return *m.limitMessages
	}
	return 0
}

func (m MessageRepository) scanReverse(ctx context.Context, prefix string, limit int) ([]chat.Message, error) {
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		// "~" sorts after every digit and hex character of the key suffix
		seekKey := []byte(prefix + "~")
		for it.Seek(seekKey); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			item := it.Item()
			err := item.Value(func(value []byte) error {
				message, err := unmarshalMessage(value)
				if err != nil {
					return fmt.Errorf("key %s: %w", strings.TrimPrefix(string(item.Key()), messagePrefix), err)
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
