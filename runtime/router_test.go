package runtime

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
)

func newTestRouter(t *testing.T, registry *Registry) (*MessageRouter, *mocks.MockIMessageStore, *mocks.MockIUserDirectory) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	users := mocks.NewMockIUserDirectory(ctrl)
	log := slog.New(slog.DiscardHandler)
	return NewMessageRouter(store, users, registry, log, 200*time.Millisecond, 2000), store, users
}

func persistedMessage(sender, receiver, text string) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestRouter_Send_Rejects_Invalid_Text(t *testing.T) {
	registry := NewRegistry()
	router, _, _ := newTestRouter(t, registry)
	sender := NewSession("alice", &recordingConn{})

	tests := []struct {
		name string
		to   string
		text string
	}{
		{name: "should reject an empty receiver", to: "", text: "hello"},
		{name: "should reject an empty text", to: "bob", text: ""},
		{name: "should reject a whitespace-only text", to: "bob", text: " \t\n "},
		{name: "should reject an oversized text", to: "bob", text: strings.Repeat("a", 2001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := router.Send(context.Background(), sender, tt.to, tt.text)
			require.ErrorIs(t, err, errors.ErrInvalidMessageData)
		})
	}
}

func TestRouter_Send_Accepts_Text_At_The_Length_Limit(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, store, users := newTestRouter(t, registry)
	conn := &recordingConn{}
	sender := NewSession("alice", conn)
	registry.Register(sender)

	// 2000 runes, not bytes: multibyte text at the limit still passes.
	text := strings.Repeat("é", 2000)
	users.EXPECT().Exists(gomock.Any(), "bob").Return(true, nil)
	store.EXPECT().AddMessage(gomock.Any(), "alice", "bob", text).
		Return(persistedMessage("alice", "bob", text), nil)

	msg, err := router.Send(context.Background(), sender, "bob", text)
	req.NoError(err)
	req.Equal(text, msg.Text)
}

func TestRouter_Send_Rejects_Unknown_Receiver(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, _, users := newTestRouter(t, registry)
	sender := NewSession("alice", &recordingConn{})

	users.EXPECT().Exists(gomock.Any(), "ghost").Return(false, nil)

	_, err := router.Send(context.Background(), sender, "ghost", "anyone there?")
	req.ErrorIs(err, errors.ErrUnknownReceiver)
}

func TestRouter_Send_Wraps_Directory_Failures(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, _, users := newTestRouter(t, registry)
	sender := NewSession("alice", &recordingConn{})

	users.EXPECT().Exists(gomock.Any(), "bob").Return(false, context.DeadlineExceeded)

	_, err := router.Send(context.Background(), sender, "bob", "hello")
	req.ErrorIs(err, errors.ErrDeliveryFailed)
}

func TestRouter_Send_Echoes_To_Sender_And_Delivers_To_Receiver(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, store, users := newTestRouter(t, registry)

	senderConn := &recordingConn{}
	receiverConn := &recordingConn{}
	sender := NewSession("alice", senderConn)
	receiver := NewSession("bob", receiverConn)
	registry.Register(sender)
	registry.Register(receiver)

	users.EXPECT().Exists(gomock.Any(), "bob").Return(true, nil)
	store.EXPECT().AddMessage(gomock.Any(), "alice", "bob", "hello bob").
		Return(persistedMessage("alice", "bob", "hello bob"), nil)

	msg, err := router.Send(context.Background(), sender, "bob", "hello bob")
	req.NoError(err)

	// Both sides receive the identical persisted record.
	senderEvents := senderConn.Events()
	receiverEvents := receiverConn.Events()
	req.Len(senderEvents, 1)
	req.Len(receiverEvents, 1)
	req.Equal(event.NewMessage{Message: msg}, senderEvents[0])
	req.Equal(event.NewMessage{Message: msg}, receiverEvents[0])
}

func TestRouter_Send_Persists_For_Offline_Receiver(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, store, users := newTestRouter(t, registry)

	senderConn := &recordingConn{}
	sender := NewSession("alice", senderConn)
	registry.Register(sender)

	users.EXPECT().Exists(gomock.Any(), "bob").Return(true, nil)
	store.EXPECT().AddMessage(gomock.Any(), "alice", "bob", "see you later").
		Return(persistedMessage("alice", "bob", "see you later"), nil)

	// Bob is a known user but has no live session.
	msg, err := router.Send(context.Background(), sender, "bob", "see you later")
	req.NoError(err)
	req.Equal("see you later", msg.Text)

	// The send is acknowledged to the sender only.
	req.Len(senderConn.Events(), 1)
}

func TestRouter_Send_Rate_Limits_Bursts(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, store, users := newTestRouter(t, registry)

	senderConn := &recordingConn{}
	sender := NewSession("alice", senderConn)
	registry.Register(sender)

	users.EXPECT().Exists(gomock.Any(), "bob").Return(true, nil).AnyTimes()
	store.EXPECT().AddMessage(gomock.Any(), "alice", "bob", gomock.Any()).
		DoAndReturn(func(_ context.Context, s, r, text string) (domain.Message, error) {
			return persistedMessage(s, r, text), nil
		}).AnyTimes()

	accepted, limited := 0, 0
	for i := 0; i < 6; i++ {
		_, err := router.Send(context.Background(), sender, "bob", "burst")
		switch {
		case err == nil:
			accepted++
		case err == errors.ErrRateLimited:
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// A tight burst gets one message through; the rest hit the floor.
	req.Equal(1, accepted)
	req.Equal(5, limited)

	// After the floor elapses the sender is admitted again.
	time.Sleep(210 * time.Millisecond)
	_, err := router.Send(context.Background(), sender, "bob", "after the floor")
	req.NoError(err)
}

func TestRouter_Send_Reports_Delivery_Failed_When_Persistence_Fails(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router, store, users := newTestRouter(t, registry)

	senderConn := &recordingConn{}
	sender := NewSession("alice", senderConn)
	registry.Register(sender)

	users.EXPECT().Exists(gomock.Any(), "bob").Return(true, nil)
	store.EXPECT().AddMessage(gomock.Any(), "alice", "bob", "doomed").
		Return(domain.Message{}, context.DeadlineExceeded)

	_, err := router.Send(context.Background(), sender, "bob", "doomed")
	req.ErrorIs(err, errors.ErrDeliveryFailed)
	req.Empty(senderConn.Events())
}
