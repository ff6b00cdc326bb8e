package chat

import "fmt"

const (
	TargetSendMessage         = "SendMessage"
	TargetReceiveMessage      = "ReceiveMessage"
	TargetReceiveNotification = "ReceiveNotification"
)

// Push is an event addressed to one live connection.
type Push interface {
	Target() string
	Arguments() []string
}

// MessageReceived carries a delivered message to the recipient.
type MessageReceived struct {
	FromUserID Identity
	Body       string
	ListingID  ListingID
}

func (m MessageReceived) Target() string { return TargetReceiveMessage }

func (m MessageReceived) Arguments() []string {
	return []string{m.FromUserID.String(), m.Body, m.ListingID.String()}
}

// Notification is a derived, non persisted signal sent alongside a delivery.
type Notification struct {
	RecipientID Identity
	Summary     string
}

func (n Notification) Target() string { return TargetReceiveNotification }

func (n Notification) Arguments() []string {
	return []string{n.Summary}
}

// NewNotification derives the notification of a message.
func NewNotification(m Message) Notification {
	return Notification{
		RecipientID: m.RecipientID,
		Summary:     fmt.Sprintf("New message about listing %s", m.ListingID),
	}
}
