package sink

import (
	"context"
	"log/slog"

	"marketplace-chat/domain/chat"
	"marketplace-chat/repositories"
)

// SearchSink feeds the full-text index with every persisted message.
type SearchSink struct {
	index repositories.IMessageIndex
	log   *slog.Logger
}

func NewSearchSink(index repositories.IMessageIndex, log *slog.Logger) *SearchSink {
	return &SearchSink{index: index, log: log}
}

func (s *SearchSink) Consume(ctx context.Context, e chat.MessagePersisted) error {
	if err := s.index.Index(ctx, e.Message); err != nil {
		return err
	}
	s.log.Debug("Message indexed", "message_id", e.Message.ID)
	return nil
}
