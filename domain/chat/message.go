package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable direct message between two users about a listing.
type Message struct {
	ID          uuid.UUID
	SenderID    Identity
	RecipientID Identity
	ListingID   ListingID
	Body        string
	CreatedAt   time.Time
}

// Participants returns the two identities of the conversation in a stable order,
// so that both directions of a thread share the same key.
func (m Message) Participants() (Identity, Identity) {
	return OrderedPair(m.SenderID, m.RecipientID)
}

// OrderedPair orders two identities lexicographically.
func OrderedPair(a, b Identity) (Identity, Identity) {
	if a.String() <= b.String() {
		return a, b
	}
	return b, a
}

// MessagePersisted is emitted once a message has been durably stored.
type MessagePersisted struct {
	Message Message
}
