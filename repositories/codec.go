package repositories

import (
	"fmt"
	"time"

	"marketplace-chat/domain/chat"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Stored records use the protobuf wire format:
//
//	message StoredMessage {
//	  string id = 1; string sender_id = 2; string recipient_id = 3;
//	  string listing_id = 4; string body = 5; int64 created_at = 6; // unix nanos
//	}
//	message StoredUser {
//	  string id = 1; string email = 2; string password_hash = 3;
//	  int64 created_at = 4; repeated string roles = 5;
//	}
const (
	msgFieldID          protowire.Number = 1
	msgFieldSenderID    protowire.Number = 2
	msgFieldRecipientID protowire.Number = 3
	msgFieldListingID   protowire.Number = 4
	msgFieldBody        protowire.Number = 5
	msgFieldCreatedAt   protowire.Number = 6

	userFieldID           protowire.Number = 1
	userFieldEmail        protowire.Number = 2
	userFieldPasswordHash protowire.Number = 3
	userFieldCreatedAt    protowire.Number = 4
	userFieldRoles        protowire.Number = 5
)

func marshalMessage(m chat.Message) []byte {
	var b []byte
	b = appendString(b, msgFieldID, m.ID.String())
	b = appendString(b, msgFieldSenderID, m.SenderID.String())
	b = appendString(b, msgFieldRecipientID, m.RecipientID.String())
	b = appendString(b, msgFieldListingID, m.ListingID.String())
	b = appendString(b, msgFieldBody, m.Body)
	b = protowire.AppendTag(b, msgFieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixNano()))
	return b
}

func unmarshalMessage(b []byte) (chat.Message, error) {
	var (
		m   chat.Message
		err error
	)
	err = walk(b, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case msgFieldID:
			m.ID, err = uuid.Parse(string(value))
		case msgFieldSenderID:
			m.SenderID, err = uuid.Parse(string(value))
		case msgFieldRecipientID:
			m.RecipientID, err = uuid.Parse(string(value))
		case msgFieldListingID:
			m.ListingID, err = uuid.Parse(string(value))
		case msgFieldBody:
			m.Body = string(value)
		case msgFieldCreatedAt:
			m.CreatedAt = time.Unix(0, int64(varint)).UTC()
		}
		return err
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func marshalUser(u User) []byte {
	var b []byte
	b = appendString(b, userFieldID, u.ID)
	b = appendString(b, userFieldEmail, u.Email)
	b = appendString(b, userFieldPasswordHash, u.PasswordHash)
	b = protowire.AppendTag(b, userFieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(u.CreatedAt.Unix()))
	for _, role := range u.Roles {
		b = appendString(b, userFieldRoles, role)
	}
	return b
}

func unmarshalUser(b []byte) (User, error) {
	var u User
	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case userFieldID:
			u.ID = string(value)
		case userFieldEmail:
			u.Email = string(value)
		case userFieldPasswordHash:
			u.PasswordHash = string(value)
		case userFieldCreatedAt:
			u.CreatedAt = time.Unix(int64(varint), 0).UTC()
		case userFieldRoles:
			u.Roles = append(u.Roles, string(value))
		}
		return nil
	})
	if err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// walk visits every field of an encoded record. Unknown fields are skipped.
func walk(b []byte, visit func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var (
			value  []byte
			varint uint64
		)
		switch typ {
		case protowire.BytesType:
			value, n = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			varint, n = protowire.ConsumeVarint(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := visit(num, typ, value, varint); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMessage reads a record stored under a message key. Used by the inspection tools.
func DecodeMessage(b []byte) (chat.Message, error) {
	return unmarshalMessage(b)
}
