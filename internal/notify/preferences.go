package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventType is a category of notification users opt into
type EventType string

const (
	EventTargets EventType = "targets"
	EventWar     EventType = "war"
	EventChain   EventType = "chain"
)

// ParseEventType accepts the event names used by the chat commands
func ParseEventType(s string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case EventTargets:
		return EventTargets, nil
	case EventWar:
		return EventWar, nil
	case EventChain:
		return EventChain, nil
	default:
		return "", fmt.Errorf("unknown notification type %q", s)
	}
}

// UserPreferences are one user's notification settings
type UserPreferences struct {
	NotifyTargets bool  `json:"notify_targets"`
	NotifyWar     bool  `json:"notify_war"`
	NotifyChain   bool  `json:"notify_chain"`
	LastNotified  int64 `json:"last_notified"`
}

// Wants reports whether the user opted into an event type
func (p UserPreferences) Wants(event EventType) bool {
	switch event {
	case EventTargets:
		return p.NotifyTargets
	case EventWar:
		return p.NotifyWar
	case EventChain:
		return p.NotifyChain
	default:
		return false
	}
}

// Preferences holds every user's settings. Entries are created with all
// notifications off on first access. Safe for concurrent use.
type Preferences struct {
	mu          sync.Mutex
	users       map[string]*UserPreferences
	quietPeriod time.Duration
}

// NewPreferences creates preferences from persisted values. quietPeriod is
// the minimum gap between two notifications to the same user, across all
// event types.
func NewPreferences(users map[string]UserPreferences, quietPeriod time.Duration) *Preferences {
	p := &Preferences{
		users:       make(map[string]*UserPreferences, len(users)),
		quietPeriod: quietPeriod,
	}
	for id, prefs := range users {
		u := prefs
		p.users[id] = &u
	}
	return p
}

// Get returns a user's settings, creating the default entry if absent
func (p *Preferences) Get(userID string) UserPreferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.user(userID)
}

// Set toggles one event type for a user
func (p *Preferences) Set(userID string, event EventType, enabled bool) (UserPreferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.user(userID)
	switch event {
	case EventTargets:
		u.NotifyTargets = enabled
	case EventWar:
		u.NotifyWar = enabled
	case EventChain:
		u.NotifyChain = enabled
	default:
		return *u, fmt.Errorf("unknown notification type %q", event)
	}
	return *u, nil
}

// Reserve selects the users opted into event whose quiet period has
// elapsed and stamps them as notified at now, so concurrent dispatches never
// pick the same user twice. The previous stamps are returned for Release.
func (p *Preferences) Reserve(event EventType, now time.Time) map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	reserved := make(map[string]int64)
	for id, u := range p.users {
		if !u.Wants(event) {
			continue
		}
		if u.LastNotified > 0 && now.Sub(time.Unix(u.LastNotified, 0)) < p.quietPeriod {
			continue
		}
		reserved[id] = u.LastNotified
		u.LastNotified = now.Unix()
	}
	return reserved
}

// Release restores the stamp of a reserved user whose delivery failed
func (p *Preferences) Release(userID string, previous int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[userID]; ok {
		u.LastNotified = previous
	}
}

// Snapshot returns a copy of every user's settings for persistence
func (p *Preferences) Snapshot() map[string]UserPreferences {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]UserPreferences, len(p.users))
	for id, u := range p.users {
		out[id] = *u
	}
	return out
}

// Users returns the known user ids in sorted order
func (p *Preferences) Users() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Preferences) user(userID string) *UserPreferences {
	u, ok := p.users[userID]
	if !ok {
		u = &UserPreferences{}
		p.users[userID] = u
	}
	return u
}
