package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSession_AllowSend_Enforces_200ms_Floor(t *testing.T) {
	req := require.New(t)
	session := NewSession("alice", &recordingConn{})
	floor := 200 * time.Millisecond
	base := time.Now()

	at := func(offset time.Duration) bool {
		return session.AllowSend(base.Add(offset), floor)
	}

	// Six sends within one second: five land on or after the floor,
	// the burst at +150ms is rejected and does not push the window.
	req.True(at(0))
	req.False(at(150 * time.Millisecond))
	req.True(at(200 * time.Millisecond))
	req.True(at(400 * time.Millisecond))
	req.True(at(600 * time.Millisecond))
	req.True(at(800 * time.Millisecond))
}

func TestSession_AllowSend_Rejection_Does_Not_Advance_State(t *testing.T) {
	req := require.New(t)
	session := NewSession("alice", &recordingConn{})
	floor := 200 * time.Millisecond
	base := time.Now()

	req.True(session.AllowSend(base, floor))
	req.False(session.AllowSend(base.Add(100*time.Millisecond), floor))
	req.False(session.AllowSend(base.Add(199*time.Millisecond), floor))
	// Still measured from the last ACCEPTED send at base.
	req.True(session.AllowSend(base.Add(200*time.Millisecond), floor))
}

func TestSession_Liveness_Confirmation(t *testing.T) {
	req := require.New(t)
	session := NewSession("alice", &recordingConn{})

	// A fresh session counts as confirmed.
	req.True(session.Confirmed())

	session.Unconfirm()
	req.False(session.Confirmed())

	session.Confirm()
	req.True(session.Confirmed())
}
