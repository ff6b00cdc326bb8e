package chat

import "github.com/google/uuid"

// ConnectionID is the unique handle of one live transport connection.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// ConnectionState follows Connecting -> Connected -> Disconnected.
type ConnectionState int32

const (
	Connecting ConnectionState = iota
	Connected
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
