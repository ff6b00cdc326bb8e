package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketplace-chat/contract"
	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/moderation"
	"marketplace-chat/observability"

	"github.com/google/uuid"
)

type moderator interface {
	Moderate(body string) moderation.Verdict
}

// Router persists a message then pushes it to every live connection of the recipient.
type Router struct {
	log         *slog.Logger
	store       contract.MessageStore
	registry    contract.IRegistry
	metrics     *observability.Metrics
	moderator   moderator
	events      chan<- chat.MessagePersisted
	pushTimeout time.Duration
	locks       *pairLock
	now         func() time.Time
}

// NewRouter creates a router. moderator and events may be nil.
func NewRouter(log *slog.Logger, store contract.MessageStore, registry contract.IRegistry,
	metrics *observability.Metrics, moderator *moderation.Moderator,
	events chan<- chat.MessagePersisted, pushTimeout time.Duration) *Router {
	r := &Router{
		log:         log,
		store:       store,
		registry:    registry,
		metrics:     metrics,
		events:      events,
		pushTimeout: pushTimeout,
		locks:       newPairLock(),
		now:         time.Now,
	}
	if moderator != nil {
		r.moderator = moderator
	}
	return r
}

// Route validates the addressing, stores the message durably and delivers it.
// Nothing is pushed unless the store accepted the message. Delivery failures
// are logged and never reported to the caller.
func (r *Router) Route(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, error) {
	switch {
	case cmd.SenderID == uuid.Nil:
		return chat.Message{}, errors.ErrInvalidSenderID
	case cmd.RecipientID == uuid.Nil:
		return chat.Message{}, errors.ErrInvalidRecipientID
	case cmd.ListingID == uuid.Nil:
		return chat.Message{}, errors.ErrInvalidListingID
	}

	// A sender going away must not interrupt a delivery already started
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	defer func() { r.metrics.RouteDuration.Observe(time.Since(start).Seconds()) }()

	body := r.moderate(cmd)

	unlock := r.locks.Lock(cmd.SenderID, cmd.RecipientID)
	defer unlock()

	msg := chat.Message{
		ID:          uuid.New(),
		SenderID:    cmd.SenderID,
		RecipientID: cmd.RecipientID,
		ListingID:   cmd.ListingID,
		Body:        body,
		CreatedAt:   r.createdAt(cmd),
	}

	if err := r.store.Append(ctx, msg); err != nil {
		r.metrics.PersistFailures.Inc()
		r.log.Error("Unable to persist message",
			"message_id", msg.ID, "sender_id", msg.SenderID, "recipient_id", msg.RecipientID, "error", err)
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistenceFailure, err)
	}
	r.metrics.MessagesPersisted.Inc()

	connections := r.registry.ConnectionsFor(msg.RecipientID)
	r.push(ctx, connections, chat.MessageReceived{
		FromUserID: msg.SenderID,
		Body:       msg.Body,
		ListingID:  msg.ListingID,
	})
	r.push(ctx, connections, chat.NewNotification(msg))
	r.publish(msg)

	r.log.Debug("Message routed",
		"message_id", msg.ID, "recipient_id", msg.RecipientID, "connections", len(connections))
	return msg, nil
}

// createdAt never predates the moment the hub received the request.
func (r *Router) createdAt(cmd chat.SendMessageCommand) time.Time {
	now := r.now().UTC()
	if now.Before(cmd.RequestedAt) {
		return cmd.RequestedAt.UTC()
	}
	return now
}

func (r *Router) moderate(cmd chat.SendMessageCommand) string {
	if r.moderator == nil {
		return cmd.Body
	}
	verdict := r.moderator.Moderate(cmd.Body)
	if len(verdict.CensoredWords) > 0 {
		r.log.Info("Message body censored",
			"sender_id", cmd.SenderID, "listing_id", cmd.ListingID,
			"lang", verdict.Lang, "words", len(verdict.CensoredWords))
	}
	return verdict.Content
}

// push queues p on every connection of the snapshot. One failure never stops the others.
func (r *Router) push(ctx context.Context, connections []contract.Connection, p chat.Push) {
	for _, conn := range connections {
		pushCtx, cancel := context.WithTimeout(ctx, r.pushTimeout)
		err := conn.Consume(pushCtx, p)
		cancel()
		if err != nil {
			r.metrics.ObservePushFailure(p.Target(), err)
			r.log.Warn("Push failed",
				"target", p.Target(), "connection_id", conn.ID(), "user_id", conn.UserID(), "error", err)
			continue
		}
		r.metrics.Pushes.WithLabelValues(p.Target()).Inc()
	}
}

func (r *Router) publish(msg chat.Message) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- chat.MessagePersisted{Message: msg}:
	default:
		r.metrics.EventsDropped.Inc()
		r.log.Warn("Event queue full, MessagePersisted dropped", "message_id", msg.ID)
	}
}
