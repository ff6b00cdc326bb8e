// Package chat contains core concepts of the marketplace messaging core.
// No runtime, network, or storage logic should be added here.
package chat

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is the stable identifier of an authenticated user.
type Identity = uuid.UUID

// ListingID scopes a conversation to a marketplace listing.
type ListingID = uuid.UUID

// ParseIdentifier parses a raw identifier received from a client.
// Blank and all-zero identifiers are rejected.
func ParseIdentifier(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
