package runtime

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// PresenceBroadcaster announces online/offline transitions to every live
// session. Fan-out is best-effort: one unreachable target never aborts
// delivery to the others, and a directory write failure never blocks
// connection teardown.
type PresenceBroadcaster struct {
	registry *Registry
	users    contract.IUserDirectory
	log      *slog.Logger
}

func NewPresenceBroadcaster(registry *Registry, users contract.IUserDirectory, log *slog.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry, users: users, log: log}
}

// Announce persists the presence flag and fans the transition out to all
// registered sessions, the transitioning user's own included. The caller
// guarantees it is invoked exactly once per registration and once per
// teardown.
func (p *PresenceBroadcaster) Announce(ctx context.Context, userID string, online bool) {
	if err := p.users.SetOnline(ctx, userID, online); err != nil {
		p.log.Warn("Failed to persist presence flag", "user_id", userID, "online", online, "err", err)
	}

	evt := event.Presence{UserID: userID, IsOnline: online}
	for _, session := range p.registry.All() {
		if err := session.Deliver(ctx, evt); err != nil {
			p.log.Debug("Presence delivery skipped", "target", session.UserID, "err", err)
		}
	}
}
