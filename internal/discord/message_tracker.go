package discord

import (
	"sort"
	"sync"
	"time"
)

// TrackedMessage is a bot message that should be removed once it is stale
type TrackedMessage struct {
	ChannelID string
	MessageID string
	MemberID  string
	PostedAt  time.Time
}

// MessageTracker remembers target announcements so they can be cleaned up.
// Safe for concurrent use.
type MessageTracker struct {
	mu       sync.Mutex
	messages map[string]TrackedMessage
}

// NewMessageTracker creates an empty tracker
func NewMessageTracker() *MessageTracker {
	return &MessageTracker{messages: make(map[string]TrackedMessage)}
}

// Track records a posted message
func (t *MessageTracker) Track(m TrackedMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages[m.MessageID] = m
}

// Forget drops a message, e.g. once it has been claimed
func (t *MessageTracker) Forget(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.messages, messageID)
}

// TakeExpired removes and returns the messages posted more than ttl before
// now, oldest first
func (t *MessageTracker) TakeExpired(now time.Time, ttl time.Duration) []TrackedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []TrackedMessage
	for id, m := range t.messages {
		if now.Sub(m.PostedAt) > ttl {
			expired = append(expired, m)
			delete(t.messages, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].PostedAt.Before(expired[j].PostedAt)
	})
	return expired
}

// TakeAll removes and returns every tracked message
func (t *MessageTracker) TakeAll() []TrackedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]TrackedMessage, 0, len(t.messages))
	for _, m := range t.messages {
		all = append(all, m)
	}
	t.messages = make(map[string]TrackedMessage)
	return all
}

// Len returns the number of tracked messages
func (t *MessageTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
