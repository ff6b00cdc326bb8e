package runtime

import (
	"marketplace-chat/contract"
	"marketplace-chat/domain/chat"
	"sort"
	"sync"
)

type connectionSet map[chat.ConnectionID]contract.Connection

// Registry keeps the live connections of every online identity.
type Registry struct {
	mu          sync.RWMutex
	connections map[chat.Identity]connectionSet
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[chat.Identity]connectionSet),
	}
}

// Register adds a connection to the identity's set.
// Registering the same connection twice leaves a single entry.
func (r *Registry) Register(identity chat.Identity, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.connections[identity]
	if !ok {
		set = make(connectionSet)
		r.connections[identity] = set
	}
	set[conn.ID()] = conn
}

// Unregister removes a connection from the identity's set.
// The identity entry is dropped once its last connection leaves, and
// unregistering an unknown connection is a no-op so disconnect races never fail.
func (r *Registry) Unregister(identity chat.Identity, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.connections[identity]
	if !ok {
		return
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(r.connections, identity)
	}
}

// ConnectionsFor returns a snapshot of the identity's live connections,
// ordered by connection id. The slice is owned by the caller.
func (r *Registry) ConnectionsFor(identity chat.Identity) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.connections[identity]
	snapshot := make([]contract.Connection, 0, len(set))
	for _, conn := range set {
		snapshot = append(snapshot, conn)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ID() < snapshot[j].ID()
	})
	return snapshot
}

// Stats returns the number of online identities and live connections.
func (r *Registry) Stats() (identities, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, set := range r.connections {
		connections += len(set)
	}
	return len(r.connections), connections
}
