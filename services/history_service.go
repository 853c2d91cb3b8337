package services

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/repositories"
)

type IHistoryService interface {
	Conversation(ctx context.Context, userID, peerID string, limit int, cursor *string) ([]domain.Message, *string, error)
	ChatSummaries(ctx context.Context, userID string) ([]domain.ChatSummary, error)
	Users(ctx context.Context) ([]domain.PublicUser, error)
}

type HistoryService struct {
	messages     repositories.IMessageRepository
	users        repositories.IUserRepository
	log          *slog.Logger
	defaultLimit int
}

func NewHistoryService(messages repositories.IMessageRepository, users repositories.IUserRepository,
	log *slog.Logger, defaultLimit int) IHistoryService {
	return &HistoryService{messages: messages, users: users, log: log, defaultLimit: defaultLimit}
}

// Conversation pages through one conversation (newest first) and, as a side
// effect of the authenticated receiver reading it, marks the peer's unread
// messages read. A read-marking failure does not fail the fetch.
func (s *HistoryService) Conversation(ctx context.Context, userID, peerID string, limit int, cursor *string) ([]domain.Message, *string, error) {
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}

	messages, next, err := s.messages.MessagesBetween(ctx, userID, peerID, limit, cursor)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.messages.MarkConversationRead(ctx, userID, peerID); err != nil {
		s.log.Warn("Read marking failed", "user_id", userID, "peer_id", peerID, "err", err)
	}
	return messages, next, nil
}

// ChatSummaries builds the chat list: for every peer the user has exchanged
// messages with, the latest message and the number of unread ones, most
// recent conversation first.
func (s *HistoryService) ChatSummaries(ctx context.Context, userID string) ([]domain.ChatSummary, error) {
	lasts, err := s.messages.ChatPeers(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ChatSummary, 0, len(lasts))
	for _, last := range lasts {
		peerID := last.SenderID
		if peerID == userID {
			peerID = last.ReceiverID
		}

		peer, err := s.users.GetUserByID(ctx, peerID)
		if err != nil {
			s.log.Warn("Chat peer lookup failed", "peer_id", peerID, "err", err)
			continue
		}
		unread, err := s.messages.UnreadCount(ctx, userID, peerID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, domain.ChatSummary{
			Peer:        peer.Public(),
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}

func (s *HistoryService) Users(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.PublicUser {
		return u.Public()
	}), nil
}
