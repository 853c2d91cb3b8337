package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestUserRepository_CreateUser(t *testing.T) {
	t.Run("should persist a user and return its id", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(setupTestDB(t))

		id, err := repo.CreateUser(context.Background(), "alice@example.com", "hashed-secret")
		req.NoError(err)
		req.NotEmpty(id)

		user, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
		req.NoError(err)
		req.Equal(id, user.ID)
		req.Equal("alice@example.com", user.Email)
		req.Equal("hashed-secret", user.PasswordHash)
		req.False(user.IsOnline)
	})

	t.Run("should refuse a duplicate email", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(setupTestDB(t))

		_, err := repo.CreateUser(context.Background(), "alice@example.com", "hash-one")
		req.NoError(err)

		_, err = repo.CreateUser(context.Background(), "alice@example.com", "hash-two")
		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	t.Run("should resolve a user by id through the email index", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(setupTestDB(t))

		id, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
		req.NoError(err)

		user, err := repo.GetUserByID(context.Background(), id)
		req.NoError(err)
		req.Equal("alice@example.com", user.Email)
	})

	t.Run("should report a missing user", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(setupTestDB(t))

		_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
		req.ErrorIs(err, errors.ErrUserNotFound)

		_, err = repo.GetUserByID(context.Background(), "no-such-id")
		req.ErrorIs(err, errors.ErrUserNotFound)
	})

	t.Run("should list every registered user", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(setupTestDB(t))

		_, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
		req.NoError(err)
		_, err = repo.CreateUser(context.Background(), "bob@example.com", "hash")
		req.NoError(err)

		users, err := repo.AllUsers(context.Background())
		req.NoError(err)
		req.Len(users, 2)
	})
}

func TestUserRepository_Exists(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(setupTestDB(t))

	id, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	req.NoError(err)

	known, err := repo.Exists(context.Background(), id)
	req.NoError(err)
	req.True(known)

	known, err = repo.Exists(context.Background(), "ghost")
	req.NoError(err)
	req.False(known)
}

func TestUserRepository_SetOnline_Round_Trip(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(setupTestDB(t))

	id, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	req.NoError(err)

	req.NoError(repo.SetOnline(context.Background(), id, true))
	user, err := repo.GetUserByID(context.Background(), id)
	req.NoError(err)
	req.True(user.IsOnline)
	req.NotNil(user.LastSeen)

	req.NoError(repo.SetOnline(context.Background(), id, false))
	user, err = repo.GetUserByID(context.Background(), id)
	req.NoError(err)
	req.False(user.IsOnline)
}
