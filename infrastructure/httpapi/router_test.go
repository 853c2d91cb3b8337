package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/services"
)

const testPassword = "Valid-Passw0rd-123!"

type stubDirectory struct {
	online []string
}

func (s *stubDirectory) OnlineUsers() []string { return s.online }
func (s *stubDirectory) IsUserOnline(userID string) bool {
	for _, id := range s.online {
		if id == userID {
			return true
		}
	}
	return false
}

type apiFixture struct {
	server   *httptest.Server
	messages *repositories.MessageRepository
	online   *stubDirectory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.DiscardHandler)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	tokens := auth.NewTokenService("api-test-secret", time.Hour)

	authService := services.NewAuthService(users, tokens)
	historyService := services.NewHistoryService(messages, users, log, 50)
	online := &stubDirectory{}

	handler := NewRouter(
		NewAuthHandler(authService),
		NewChatHandler(historyService, online),
		tokens,
		func(chi.Router) {},
	)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, messages: messages, online: online}
}

func (f *apiFixture) post(t *testing.T, path string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *apiFixture) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type accountResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

// register creates an account through the public endpoint and returns it.
func (f *apiFixture) register(t *testing.T, email string) accountResponse {
	t.Helper()
	resp := f.post(t, "/auth/register", fmt.Sprintf(`{"email":%q,"password":%q}`, email, testPassword))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var account accountResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&account))
	return account
}

func TestAPI_Register(t *testing.T) {
	t.Run("should create an account and hand back a token", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		account := f.register(t, "alice@example.com")
		req.NotEmpty(account.Token)
		req.Equal("alice@example.com", account.User.Email)
		req.NotEmpty(account.User.ID)
	})

	t.Run("should answer 409 for a duplicate email", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		f.register(t, "alice@example.com")
		resp := f.post(t, "/auth/register", fmt.Sprintf(`{"email":"alice@example.com","password":%q}`, testPassword))
		req.Equal(http.StatusConflict, resp.StatusCode)
	})

	t.Run("should answer 400 for a weak password", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		resp := f.post(t, "/auth/register", `{"email":"alice@example.com","password":"weak"}`)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("should answer 400 for a malformed body", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		resp := f.post(t, "/auth/register", `{"email": `)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPI_Login(t *testing.T) {
	t.Run("should authenticate an existing account", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)
		f.register(t, "alice@example.com")

		resp := f.post(t, "/auth/login", fmt.Sprintf(`{"email":"alice@example.com","password":%q}`, testPassword))
		req.Equal(http.StatusOK, resp.StatusCode)

		var account accountResponse
		req.NoError(json.NewDecoder(resp.Body).Decode(&account))
		req.NotEmpty(account.Token)
	})

	t.Run("should answer 401 for a wrong password", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)
		f.register(t, "alice@example.com")

		resp := f.post(t, "/auth/login", `{"email":"alice@example.com","password":"Wrong-Passw0rd!"}`)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should answer 401 for an unknown account", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		resp := f.post(t, "/auth/login", fmt.Sprintf(`{"email":"ghost@example.com","password":%q}`, testPassword))
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAPI_Bearer_Protection(t *testing.T) {
	t.Run("should answer 401 without a token", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		resp := f.get(t, "/users", "")
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should answer 401 with a garbage token", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)

		resp := f.get(t, "/users", "garbage")
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAPI_Directory(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")
	f.online.online = []string{bob.User.ID}

	resp := f.get(t, "/users", alice.Token)
	req.Equal(http.StatusOK, resp.StatusCode)
	var users []domain.PublicUser
	req.NoError(json.NewDecoder(resp.Body).Decode(&users))
	req.Len(users, 2)

	resp = f.get(t, "/users/online", alice.Token)
	req.Equal(http.StatusOK, resp.StatusCode)
	var online []string
	req.NoError(json.NewDecoder(resp.Body).Decode(&online))
	req.Equal([]string{bob.User.ID}, online)
}

func TestAPI_Conversation_And_Chats(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	for i := 0; i < 3; i++ {
		_, err := f.messages.AddMessage(context.Background(), bob.User.ID, alice.User.ID, fmt.Sprintf("msg-%d", i))
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}

	// The chat list shows one conversation with three unread messages.
	resp := f.get(t, "/chats", alice.Token)
	req.Equal(http.StatusOK, resp.StatusCode)
	var summaries []domain.ChatSummary
	req.NoError(json.NewDecoder(resp.Body).Decode(&summaries))
	req.Len(summaries, 1)
	req.Equal(bob.User.ID, summaries[0].Peer.ID)
	req.Equal(3, summaries[0].UnreadCount)
	req.Equal("msg-2", summaries[0].LastMessage.Text)

	// Fetching the conversation pages newest first and marks it read.
	resp = f.get(t, "/messages/"+bob.User.ID+"?limit=2", alice.Token)
	req.Equal(http.StatusOK, resp.StatusCode)
	var page struct {
		Messages []domain.Message `json:"messages"`
		Cursor   *string          `json:"cursor"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 2)
	req.Equal("msg-2", page.Messages[0].Text)
	req.NotNil(page.Cursor)

	resp = f.get(t, "/messages/"+bob.User.ID+"?limit=2&cursor="+*page.Cursor, alice.Token)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 1)
	req.Equal("msg-0", page.Messages[0].Text)

	resp = f.get(t, "/chats", alice.Token)
	req.NoError(json.NewDecoder(resp.Body).Decode(&summaries))
	req.Zero(summaries[0].UnreadCount)
}

func TestAPI_Health(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	resp, err := http.Get(f.server.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var payload map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Equal("OK", payload["status"])
}
