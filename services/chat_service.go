//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"strings"

	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/repositories"
)

type IChatService interface {
	History(ctx context.Context, userID chat.Identity, rawListingID, rawOtherID string) ([]chat.Message, error)
	Search(ctx context.Context, userID chat.Identity, terms string) ([]chat.Message, uint64, error)
}

// ChatService answers the read side of the hub: conversation history and search.
type ChatService struct {
	log         *slog.Logger
	messages    repositories.IMessageRepository
	index       repositories.IMessageIndex
	searchLimit int
}

func NewChatService(log *slog.Logger, messages repositories.IMessageRepository,
	index repositories.IMessageIndex, searchLimit int) *ChatService {
	return &ChatService{log: log, messages: messages, index: index, searchLimit: searchLimit}
}

func (s *ChatService) History(ctx context.Context, userID chat.Identity, rawListingID, rawOtherID string) ([]chat.Message, error) {
	listingID, ok := chat.ParseIdentifier(rawListingID)
	if !ok {
		return nil, errors.ErrInvalidListingID
	}
	otherID, ok := chat.ParseIdentifier(rawOtherID)
	if !ok {
		return nil, errors.ErrInvalidRecipientID
	}
	return s.messages.GetConversation(ctx, chat.ConversationQuery{
		UserID:    userID,
		OtherID:   otherID,
		ListingID: listingID,
	})
}

func (s *ChatService) Search(ctx context.Context, userID chat.Identity, terms string) ([]chat.Message, uint64, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, 0, errors.ErrInvalidRequest
	}
	messages, total, err := s.index.Search(ctx, userID, terms, s.searchLimit)
	if err != nil {
		s.log.Error("Search failed", "user_id", userID, "error", err)
		return nil, 0, err
	}
	return messages, total, nil
}
