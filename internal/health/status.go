package health

import (
	"sync"
	"time"
)

// Status is the small view of the bot the health endpoints report. The core
// updates it after each poll; it is safe for concurrent use.
type Status struct {
	mu          sync.RWMutex
	startedAt   time.Time
	botName     string
	warTracking bool
	warID       string
	lastCheck   time.Time
}

// NewStatus creates a status whose uptime counts from startedAt
func NewStatus(startedAt time.Time) *Status {
	return &Status{startedAt: startedAt}
}

// SetBotName records the chat user the bot is logged in as
func (s *Status) SetBotName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botName = name
}

// SetWar records the war currently held by the tracker. An empty id means no
// war is tracked.
func (s *Status) SetWar(warID string, ongoing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warID = warID
	s.warTracking = warID != "" && ongoing
}

// MarkChecked records the time of the latest completed war poll
func (s *Status) MarkChecked(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheck = at
}

// Report is the JSON body served on /status
type Report struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	BotName     string `json:"bot_name"`
	WarTracking bool   `json:"war_tracking"`
	WarID       string `json:"war_id,omitempty"`
	LastCheck   string `json:"last_check,omitempty"`
}

// Snapshot returns the report as of now
func (s *Status) Snapshot(now time.Time) Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := Report{
		Status:      "online",
		Uptime:      formatUptime(now.Sub(s.startedAt)),
		BotName:     s.botName,
		WarTracking: s.warTracking,
		WarID:       s.warID,
	}
	if s.botName == "" {
		r.Status = "starting"
	}
	if !s.lastCheck.IsZero() {
		r.LastCheck = s.lastCheck.UTC().Format(time.RFC3339)
	}
	return r
}

// Uptime returns the formatted time since start
func (s *Status) Uptime(now time.Time) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return formatUptime(now.Sub(s.startedAt))
}
