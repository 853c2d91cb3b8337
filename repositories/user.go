//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, email, hashedPassword string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	AllUsers(ctx context.Context) ([]domain.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	SetOnline(ctx context.Context, userID string, online bool) error
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Keys: "user:{email}" holds the document, "userid:{id}" maps the stable id
// back to the email so lookups by id need one extra hop.
func userKey(email string) []byte { return []byte("user:" + email) }
func idKey(id string) []byte      { return []byte("userid:" + id) }

// CreateUser persists the user and returns the newly generated user id. The
// password arrives already hashed; this layer never sees plain credentials.
func (u *UserRepository) CreateUser(ctx context.Context, email, hashedPassword string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	user := domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	doc, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(email), doc); err != nil {
			return err
		}
		return txn.Set(idKey(user.ID), []byte(email))
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}

func (u *UserRepository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		var email []byte
		if email, err = item.ValueCopy(nil); err != nil {
			return err
		}
		doc, err := txn.Get(userKey(string(email)))
		if err != nil {
			return err
		}
		return doc.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}

func (u *UserRepository) AllUsers(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var users []domain.User
	prefix := []byte("user:")
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user domain.User
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			}); err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func (u *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(idKey(userID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

// SetOnline flips the persisted presence flag and refreshes LastSeen. The
// live source of truth for presence is the session registry; this flag only
// feeds the directory listing.
func (u *UserRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(userID))
		if err != nil {
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		doc, err := txn.Get(userKey(string(email)))
		if err != nil {
			return err
		}
		var user domain.User
		if err := doc.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		user.IsOnline = online
		user.LastSeen = &now
		updated, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(string(email)), updated)
	})
}
