package services

import (
	"context"
	"log/slog"
	"testing"

	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_History(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should query the conversation of the caller", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockIMessageRepository(ctrl)
		svc := NewChatService(log, repo, mocks.NewMockIMessageIndex(ctrl), 20)
		userID, otherID, listingID := uuid.New(), uuid.New(), uuid.New()
		expected := []chat.Message{{ID: uuid.New(), Body: "Deal"}}

		repo.EXPECT().GetConversation(gomock.Any(), chat.ConversationQuery{
			UserID: userID, OtherID: otherID, ListingID: listingID,
		}).Return(expected, nil).Times(1)

		messages, err := svc.History(context.Background(), userID, listingID.String(), otherID.String())

		req.NoError(err)
		req.Equal(expected, messages)
	})

	t.Run("should reject malformed identifiers", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc := NewChatService(log, mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIMessageIndex(ctrl), 20)

		_, err := svc.History(context.Background(), uuid.New(), "nope", uuid.NewString())
		req.ErrorIs(err, errors.ErrInvalidListingID)

		_, err = svc.History(context.Background(), uuid.New(), uuid.NewString(), "nope")
		req.ErrorIs(err, errors.ErrInvalidRecipientID)
	})
}

func TestChatService_Search(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should search with the configured limit", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		index := mocks.NewMockIMessageIndex(ctrl)
		svc := NewChatService(log, mocks.NewMockIMessageRepository(ctrl), index, 20)
		userID := uuid.New()

		index.EXPECT().Search(gomock.Any(), userID, "civic", 20).Return([]chat.Message{{Body: "civic"}}, uint64(1), nil).Times(1)

		messages, total, err := svc.Search(context.Background(), userID, "  civic ")

		req.NoError(err)
		req.Len(messages, 1)
		req.Equal(uint64(1), total)
	})

	t.Run("should reject blank terms", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc := NewChatService(log, mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIMessageIndex(ctrl), 20)

		_, _, err := svc.Search(context.Background(), uuid.New(), "   ")

		req.ErrorIs(err, errors.ErrInvalidRequest)
	})
}
