//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"strings"
	"time"

	"marketplace-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const userPrefix = "user:"

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository representation of a marketplace account.
// Its ID is the identity carried by hub connections.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

func userKey(email string) []byte {
	return []byte(userPrefix + strings.ToLower(strings.TrimSpace(email)))
}

// CreateUser persists the user in BadgerDB and returns the newly generated identity.
// The existence check and the write share one transaction so concurrent sign-ups
// of the same email conflict instead of overwriting each other.
func (u *UserRepository) CreateUser(email, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	data := marshalUser(User{
		ID:           newID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
		Roles:        []string{"user"},
	})

	err := u.db.Update(func(txn *badger.Txn) error {
		key := userKey(email)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrUserAlreadyExists
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		return "", errors.ErrUserAlreadyExists
	}
	if err != nil {
		return "", err
	}
	return newID, nil
}

// GetUserByEmail retrieves a user from Badger. A missing user surfaces as badger.ErrKeyNotFound.
func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = unmarshalUser(val)
			return err
		})
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}
