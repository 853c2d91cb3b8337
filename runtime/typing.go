package runtime

import "sync"

// TypingTracker keeps, per recipient, the set of users currently typing to
// them. State is transient: nothing is persisted or queued for offline
// delivery, and no empty set is ever left behind as a map entry.
type TypingTracker struct {
	mu sync.Mutex
	// recipient user id -> set of sender ids currently typing to them
	byRecipient map[string]map[string]struct{}
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{byRecipient: make(map[string]map[string]struct{})}
}

// Set records or clears a typing indicator. Adding an already-typing sender
// is a no-op; clearing prunes the recipient's entry once the set is empty.
// The returned flag reports whether the state actually changed.
func (t *TypingTracker) Set(fromID, toID string, typing bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if typing {
		set, ok := t.byRecipient[toID]
		if !ok {
			set = make(map[string]struct{})
			t.byRecipient[toID] = set
		}
		if _, exists := set[fromID]; exists {
			return false
		}
		set[fromID] = struct{}{}
		return true
	}

	set, ok := t.byRecipient[toID]
	if !ok {
		return false
	}
	if _, exists := set[fromID]; !exists {
		return false
	}
	delete(set, fromID)
	if len(set) == 0 {
		delete(t.byRecipient, toID)
	}
	return true
}

// ClearUser removes every trace of a user on session teardown: their own
// recipient entry, and their presence as a sender in everyone else's set.
func (t *TypingTracker) ClearUser(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.byRecipient, userID)
	for recipient, set := range t.byRecipient {
		delete(set, userID)
		if len(set) == 0 {
			delete(t.byRecipient, recipient)
		}
	}
}

// TypingTo returns the senders currently typing to a recipient.
func (t *TypingTracker) TypingTo(recipientID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	senders := make([]string, 0, len(t.byRecipient[recipientID]))
	for sender := range t.byRecipient[recipientID] {
		senders = append(senders, sender)
	}
	return senders
}
