package runtime

import (
	"context"
	"marketplace-chat/domain/chat"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConnection struct {
	id     chat.ConnectionID
	userID string
}

func newFakeConnection(identity chat.Identity) *fakeConnection {
	return &fakeConnection{id: chat.NewConnectionID(), userID: identity.String()}
}

func (f *fakeConnection) Consume(_ context.Context, _ chat.Push) error { return nil }
func (f *fakeConnection) ID() chat.ConnectionID                       { return f.id }
func (f *fakeConnection) UserID() string                              { return f.userID }
func (f *fakeConnection) Authenticated() bool                         { return true }

func TestRegistry_Register_One_Identity_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	conn1 := newFakeConnection(identity)
	conn2 := newFakeConnection(identity)

	// Given nobody is connected
	req.Empty(registry.ConnectionsFor(identity))

	// When the same identity opens two connections
	registry.Register(identity, conn1)
	registry.Register(identity, conn2)

	// Then both are returned
	connections := registry.ConnectionsFor(identity)
	req.Len(connections, 2)
	req.Contains(connections, conn1)
	req.Contains(connections, conn2)

	identities, total := registry.Stats()
	req.Equal(1, identities)
	req.Equal(2, total)
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	conn := newFakeConnection(identity)

	// When a connection registers twice
	registry.Register(identity, conn)
	registry.Register(identity, conn)

	// Then a single entry exists
	req.Len(registry.ConnectionsFor(identity), 1)
}

func TestRegistry_Unregister_Drops_Empty_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	conn := newFakeConnection(identity)

	// Given a registered connection
	registry.Register(identity, conn)

	// When it unregisters
	registry.Unregister(identity, conn)

	// Then the identity is offline
	req.Empty(registry.ConnectionsFor(identity))
	identities, total := registry.Stats()
	req.Zero(identities)
	req.Zero(total)
}

func TestRegistry_Unregister_Absent_Connection_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	kept := newFakeConnection(identity)
	unknown := newFakeConnection(identity)

	registry.Register(identity, kept)

	// When unknown connections and identities are unregistered
	registry.Unregister(identity, unknown)
	registry.Unregister(uuid.New(), unknown)
	registry.Unregister(identity, kept)
	registry.Unregister(identity, kept)

	// Then nothing panics and the registry is empty
	identities, total := registry.Stats()
	req.Zero(identities)
	req.Zero(total)
}

func TestRegistry_ConnectionsFor_Returns_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	conn := newFakeConnection(identity)
	registry.Register(identity, conn)

	// Given a snapshot taken before the connection leaves
	snapshot := registry.ConnectionsFor(identity)
	registry.Unregister(identity, conn)

	// Then the snapshot is untouched
	req.Len(snapshot, 1)
	req.Empty(registry.ConnectionsFor(identity))
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.New()
	const workers = 50

	stable := make([]*fakeConnection, workers)
	for i := range stable {
		stable[i] = newFakeConnection(identity)
	}

	// When connections come and go concurrently under one identity
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(conn *fakeConnection) {
			defer wg.Done()
			registry.Register(identity, conn)
		}(stable[i])
		go func() {
			defer wg.Done()
			transient := newFakeConnection(identity)
			registry.Register(identity, transient)
			_ = registry.ConnectionsFor(identity)
			registry.Unregister(identity, transient)
		}()
	}
	wg.Wait()

	// Then only the stable connections remain, each exactly once
	connections := registry.ConnectionsFor(identity)
	req.Len(connections, workers)
	seen := make(map[chat.ConnectionID]struct{}, workers)
	for _, conn := range connections {
		seen[conn.ID()] = struct{}{}
	}
	req.Len(seen, workers)
}
