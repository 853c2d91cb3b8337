package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypingTracker_Set_And_Clear_Leaves_No_Residual_Entry(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker()

	// When a sender starts and stops typing
	req.True(tracker.Set("alice", "bob", true))
	req.Equal([]string{"alice"}, tracker.TypingTo("bob"))

	req.True(tracker.Set("alice", "bob", false))

	// Then the recipient's set is empty, with no leftover map entry
	req.Empty(tracker.TypingTo("bob"))
	req.Empty(tracker.byRecipient)
}

func TestTypingTracker_Set_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker()

	req.True(tracker.Set("alice", "bob", true))
	// Adding twice is a no-op
	req.False(tracker.Set("alice", "bob", true))
	req.Equal([]string{"alice"}, tracker.TypingTo("bob"))

	// Clearing a sender who never typed changes nothing
	req.False(tracker.Set("carol", "bob", false))
	req.False(tracker.Set("alice", "dave", false))
}

func TestTypingTracker_ClearUser_Removes_Sender_And_Recipient_State(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker()

	// alice types to bob and carol; dave types to alice
	tracker.Set("alice", "bob", true)
	tracker.Set("alice", "carol", true)
	tracker.Set("dave", "alice", true)
	tracker.Set("dave", "bob", true)

	// When alice's session is torn down
	tracker.ClearUser("alice")

	// Then alice is gone from every set she appeared in as a sender,
	// her own recipient entry is dropped, and other senders survive
	req.Equal([]string{"dave"}, tracker.TypingTo("bob"))
	req.Empty(tracker.TypingTo("carol"))
	req.Empty(tracker.TypingTo("alice"))
}

func TestTypingTracker_Prunes_Only_Empty_Sets(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker()

	tracker.Set("alice", "bob", true)
	tracker.Set("carol", "bob", true)

	tracker.Set("alice", "bob", false)

	req.Equal([]string{"carol"}, tracker.TypingTo("bob"))
	req.Len(tracker.byRecipient, 1)
}
