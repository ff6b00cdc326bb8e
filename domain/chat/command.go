package chat

import "time"

// SendMessageCommand is a validated send request handed to the router.
type SendMessageCommand struct {
	SenderID    Identity
	RecipientID Identity
	ListingID   ListingID
	Body        string
	RequestedAt time.Time
}

// ConversationQuery selects the thread between two users about a listing.
type ConversationQuery struct {
	UserID    Identity
	OtherID   Identity
	ListingID ListingID
}
