package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// Session binds an authenticated user id to exactly one live connection.
// It is created on successful authentication and registration, and destroyed
// when the connection closes or the liveness monitor evicts it.
type Session struct {
	UserID string

	conn contract.Conn

	// confirmed is flipped by the transport's pong handler and read/reset by
	// the liveness monitor, two different goroutines.
	confirmed atomic.Bool

	// lastSend is the rate-limit state. It is touched only by the session's
	// own read loop, which processes inbound frames sequentially, so it needs
	// no lock.
	lastSend time.Time
}

func NewSession(userID string, conn contract.Conn) *Session {
	s := &Session{UserID: userID, conn: conn}
	s.confirmed.Store(true)
	return s
}

func (s *Session) Deliver(ctx context.Context, e event.DomainEvent) error {
	return s.conn.Deliver(ctx, e)
}

// Ping sends a transport-level liveness probe.
func (s *Session) Ping() error { return s.conn.Ping() }

// Close forces the connection shut. Safe to call more than once and from any
// goroutine; teardown itself runs on the connection's read loop.
func (s *Session) Close(reason string) error { return s.conn.Close(reason) }

// Confirm records a probe response.
func (s *Session) Confirm() { s.confirmed.Store(true) }

// Unconfirm arms the next liveness check. A session still unconfirmed on the
// following tick is considered dead.
func (s *Session) Unconfirm() { s.confirmed.Store(false) }

func (s *Session) Confirmed() bool { return s.confirmed.Load() }

// AllowSend applies the per-sender send floor: a message is accepted only if
// at least minInterval elapsed since the previous accepted one. The state
// advances on acceptance only, so a rejected burst does not push the window.
func (s *Session) AllowSend(now time.Time, minInterval time.Duration) bool {
	if !s.lastSend.IsZero() && now.Sub(s.lastSend) < minInterval {
		return false
	}
	s.lastSend = now
	return true
}
