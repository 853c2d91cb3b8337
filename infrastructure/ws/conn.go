// Package ws is the websocket transport of the relay. It owns the upgrade
// handshake, the per-connection write pump and the read loop; every protocol
// decision is delegated to the runtime Hub.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/domain/event"
	"chat-relay/errors"
)

// Conn adapts a gorilla websocket connection to the contract.Conn handle the
// core owns. All data frames go through a buffered send channel drained by a
// single write pump; control frames (ping, close) use WriteControl, which is
// safe to call concurrently with pump writes.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *slog.Logger

	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, log *slog.Logger, sendBuffer int, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		log:          log,
		writeTimeout: writeTimeout,
	}
}

// Deliver queues one event for the write pump. Delivery is best-effort: a
// connection whose buffer stays full for the write timeout is treated as
// unreachable rather than allowed to block the caller.
func (c *Conn) Deliver(ctx context.Context, e event.DomainEvent) error {
	payload, err := event.Encode(e)
	if err != nil {
		return err
	}

	timer := time.NewTimer(c.writeTimeout)
	defer timer.Stop()

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.ErrDeliveryFailed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.ErrDeliveryFailed
	}
}

// Ping sends a transport-level probe outside the JSON envelope.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a close frame carrying the reason, then tears the socket down.
// Closing the underlying connection is what unblocks the read loop, so
// teardown runs promptly wherever the close was triggered from. Idempotent.
func (c *Conn) Close(reason string) error {
	c.once.Do(func() {
		deadline := time.Now().Add(c.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log.Debug("Close frame write failed", "err", err)
		}
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// WritePump owns every data write on the socket. It exits when Close fires
// or the peer becomes unwritable.
func (c *Conn) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed, dropping connection", "err", err)
				_ = c.Close("write failure")
				return
			}
		}
	}
}
