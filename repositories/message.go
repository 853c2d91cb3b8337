//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
)

type IMessageRepository interface {
	AddMessage(ctx context.Context, senderID, receiverID, text string) (domain.Message, error)
	RecentMessages(ctx context.Context, userID string, limit int) ([]domain.Message, error)
	MessagesBetween(ctx context.Context, userID, peerID string, limit int, cursor *string) ([]domain.Message, *string, error)
	MarkConversationRead(ctx context.Context, userID, peerID string) (int, error)
	UnreadCount(ctx context.Context, userID, peerID string) (int, error)
	ChatPeers(ctx context.Context, userID string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// Key layout. The padded timestamp gives lexicographic == chronological order
// inside every prefix, and the UUID acts as a collision disconnector if two
// messages land on the same nanosecond:
//
//	msg:{a}:{b}:{ts19}:{id}       message document, a<b is the sorted user pair
//	inbox:{user}:{ts19}:{id}      per-user recency index -> message key
//	last:{user}:{peer}            chat-list index -> latest message key
//	unread:{receiver}:{sender}:{id}  unread index -> message key, removed on read
func conversationPrefix(userID, peerID string) string {
	a, b := userID, peerID
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("msg:%s:%s:", a, b)
}

func messageKey(msg domain.Message) string {
	return fmt.Sprintf("%s%019d:%s",
		conversationPrefix(msg.SenderID, msg.ReceiverID),
		msg.CreatedAt.UnixNano(),
		msg.ID,
	)
}

func inboxKey(userID string, msg domain.Message) string {
	return fmt.Sprintf("inbox:%s:%019d:%s", userID, msg.CreatedAt.UnixNano(), msg.ID)
}

func lastKey(userID, peerID string) string {
	return fmt.Sprintf("last:%s:%s", userID, peerID)
}

func unreadKey(msg domain.Message) string {
	return fmt.Sprintf("unread:%s:%s:%s", msg.ReceiverID, msg.SenderID, msg.ID)
}

// AddMessage assigns the server-side identity (UUID, UTC timestamp) and
// persists the document together with all its index entries in one
// transaction.
func (m *MessageRepository) AddMessage(ctx context.Context, senderID, receiverID, text string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}

	doc, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	key := []byte(messageKey(msg))
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, doc); err != nil {
			return err
		}
		if err := txn.Set([]byte(inboxKey(msg.SenderID, msg)), key); err != nil {
			return err
		}
		if err := txn.Set([]byte(inboxKey(msg.ReceiverID, msg)), key); err != nil {
			return err
		}
		if err := txn.Set([]byte(lastKey(msg.SenderID, msg.ReceiverID)), key); err != nil {
			return err
		}
		if err := txn.Set([]byte(lastKey(msg.ReceiverID, msg.SenderID)), key); err != nil {
			return err
		}
		return txn.Set([]byte(unreadKey(msg)), key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// RecentMessages returns the newest messages a user sent or received, across
// all conversations, newest first. Used for the history replay on connect.
func (m *MessageRepository) RecentMessages(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var messages []domain.Message
	prefix := []byte(fmt.Sprintf("inbox:%s:", userID))
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts past the newest entry of the prefix.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			msg, err := m.resolve(txn, it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

// MessagesBetween pages through one conversation, newest first. Thanks to the
// padded timestamp in the key, no sorting is needed. The returned cursor
// points past the oldest message of the page; passing it back fetches the
// next older page without overlap.
func (m *MessageRepository) MessagesBetween(ctx context.Context, userID, peerID string, limit int, cursor *string) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	var next *string
	prefixStr := conversationPrefix(userID, peerID)
	prefix := []byte(prefixStr)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		// A cursor points at an already-delivered entry; skip it.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		var lastSuffix string
		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				next = &lastSuffix
				return nil
			}
			item := it.Item()
			lastSuffix = string(item.Key()[len(prefixStr):])
			var msg domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, next, nil
}

// MarkConversationRead stamps ReadAt on every unread message sent by peerID
// to userID and drops the unread index entries. ReadAt is set-once: a message
// that already carries a timestamp keeps it.
func (m *MessageRepository) MarkConversationRead(ctx context.Context, userID, peerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	marked := 0
	prefix := []byte(fmt.Sprintf("unread:%s:%s:", userID, peerID))

	err := m.db.Update(func(txn *badger.Txn) error {
		// Collect first, mutate after: the iterator is closed before the
		// transaction starts writing.
		var unreadKeys [][]byte
		var msgKeys [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			unreadKeys = append(unreadKeys, item.KeyCopy(nil))
			target, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			msgKeys = append(msgKeys, target)
		}
		it.Close()

		for i, msgKey := range msgKeys {
			item, err := txn.Get(msgKey)
			if err != nil {
				return err
			}
			var msg domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			if msg.ReadAt == nil {
				msg.ReadAt = &now
				doc, err := json.Marshal(msg)
				if err != nil {
					return err
				}
				if err := txn.Set(msgKey, doc); err != nil {
					return err
				}
				marked++
			}
			if err := txn.Delete(unreadKeys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// UnreadCount counts the unread index entries for one sender without loading
// any document.
func (m *MessageRepository) UnreadCount(ctx context.Context, userID, peerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	prefix := []byte(fmt.Sprintf("unread:%s:%s:", userID, peerID))
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ChatPeers returns the latest message of every conversation the user is part
// of, one entry per peer.
func (m *MessageRepository) ChatPeers(ctx context.Context, userID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var messages []domain.Message
	prefix := []byte(fmt.Sprintf("last:%s:", userID))
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			msg, err := m.resolve(txn, it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

// resolve follows an index entry (value = message key) to its document.
func (m *MessageRepository) resolve(txn *badger.Txn, item *badger.Item) (domain.Message, error) {
	var msg domain.Message
	err := item.Value(func(target []byte) error {
		doc, err := txn.Get(target)
		if err != nil {
			return fmt.Errorf("dangling index %q: %w", strings.TrimSpace(string(item.Key())), err)
		}
		return doc.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		})
	})
	return msg, err
}
