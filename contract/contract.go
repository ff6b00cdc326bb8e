//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"marketplace-chat/domain/chat"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink[T any] interface {
	Consume(ctx context.Context, e T) error
}

// Connection is one live transport channel bound to a single identity.
type Connection interface {
	EventSink[chat.Push]
	ID() chat.ConnectionID
	// UserID is the trusted identity resolved at handshake, empty when anonymous.
	UserID() string
	// Authenticated reports whether the credentials of the connection are still valid.
	Authenticated() bool
}

type IRegistry interface {
	Register(identity chat.Identity, conn Connection)
	Unregister(identity chat.Identity, conn Connection)
	ConnectionsFor(identity chat.Identity) []Connection
	Stats() (identities, connections int)
}

// MessageStore durably appends messages. A nil error means the message survives a crash.
type MessageStore interface {
	Append(ctx context.Context, message chat.Message) error
}

type IRouter interface {
	Route(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, error)
}
