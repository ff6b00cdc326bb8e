package services

import (
	"context"
	"log/slog"
	"time"

	"marketplace-chat/contract"
	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/observability"
)

type IHubService interface {
	OnConnected(conn contract.Connection) error
	OnDisconnected(conn contract.Connection)
	Invoke(ctx context.Context, conn contract.Connection, target string, arguments []string) error
}

// HubService is the per-connection entry point of the chat hub.
// Every error it returns is reported to the calling connection only, the connection stays open.
type HubService struct {
	log      *slog.Logger
	registry contract.IRegistry
	router   contract.IRouter
	metrics  *observability.Metrics
}

func NewHubService(log *slog.Logger, registry contract.IRegistry,
	router contract.IRouter, metrics *observability.Metrics) *HubService {
	return &HubService{log: log, registry: registry, router: router, metrics: metrics}
}

// OnConnected registers an authenticated connection under its identity.
func (s *HubService) OnConnected(conn contract.Connection) error {
	identity, ok := chat.ParseIdentifier(conn.UserID())
	if !ok {
		return errors.ErrUnauthorized
	}
	s.registry.Register(identity, conn)
	s.log.Debug("Connection registered", "user_id", identity, "connection_id", conn.ID())
	return nil
}

// OnDisconnected removes the connection, calling it twice is harmless.
func (s *HubService) OnDisconnected(conn contract.Connection) {
	identity, ok := chat.ParseIdentifier(conn.UserID())
	if !ok {
		return
	}
	s.registry.Unregister(identity, conn)
	s.log.Debug("Connection unregistered", "user_id", identity, "connection_id", conn.ID())
}

// Invoke dispatches one inbound invocation by target name.
func (s *HubService) Invoke(ctx context.Context, conn contract.Connection, target string, arguments []string) error {
	var err error
	switch {
	case conn.UserID() == "" || !conn.Authenticated():
		err = errors.ErrUnauthorized
	case target == chat.TargetSendMessage:
		if len(arguments) != 3 {
			err = errors.ErrInvalidArguments
			break
		}
		err = s.OnSendMessage(ctx, conn, arguments[0], arguments[1], arguments[2])
	default:
		err = errors.ErrUnknownTarget
	}
	s.metrics.ObserveInvocation(target, err)
	return err
}

func (s *HubService) OnSendMessage(ctx context.Context, conn contract.Connection,
	rawRecipientID, rawBody, rawListingID string) error {
	if conn.UserID() == "" || !conn.Authenticated() {
		return errors.ErrUnauthorized
	}
	senderID, ok := chat.ParseIdentifier(conn.UserID())
	if !ok {
		return errors.ErrInvalidSenderID
	}
	recipientID, ok := chat.ParseIdentifier(rawRecipientID)
	if !ok {
		return errors.ErrInvalidRecipientID
	}
	listingID, ok := chat.ParseIdentifier(rawListingID)
	if !ok {
		return errors.ErrInvalidListingID
	}

	msg, err := s.router.Route(ctx, chat.SendMessageCommand{
		SenderID:    senderID,
		RecipientID: recipientID,
		ListingID:   listingID,
		Body:        rawBody,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Message not routed", "user_id", senderID, "connection_id", conn.ID(), "error", err)
		return err
	}
	s.log.Debug("Message routed", "message_id", msg.ID, "user_id", senderID)
	return nil
}
