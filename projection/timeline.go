// Package projection builds local views from persisted messages.
// Does not emit events nor write to storage.
package projection

import (
	"context"
	"sync"

	"marketplace-chat/domain/chat"
)

const defaultTimelineSize = 50

// Timeline keeps the latest persisted messages of the hub, oldest first.
type Timeline struct {
	mu       sync.RWMutex
	size     int
	messages []chat.Message
}

func NewTimeline(size int) *Timeline {
	if size <= 0 {
		size = defaultTimelineSize
	}
	return &Timeline{size: size}
}

func (t *Timeline) Consume(_ context.Context, e chat.MessagePersisted) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, e.Message)
	if overflow := len(t.messages) - t.size; overflow > 0 {
		t.messages = append([]chat.Message(nil), t.messages[overflow:]...)
	}
	return nil
}

// Messages returns a copy of the timeline.
func (t *Timeline) Messages() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]chat.Message(nil), t.messages...)
}
