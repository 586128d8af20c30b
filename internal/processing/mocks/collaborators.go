package mocks

import (
	"context"
	"sync"
	"time"

	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/notify"
)

// MockExporter is a test double for the war report exporters
type MockExporter struct {
	mu sync.Mutex

	ExporterName string
	Error        error
	Exported     []leaderboard.WarSummary
}

func (m *MockExporter) Name() string {
	if m.ExporterName == "" {
		return "mock"
	}
	return m.ExporterName
}

func (m *MockExporter) ExportWar(ctx context.Context, summary leaderboard.WarSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Exported = append(m.Exported, summary)
	return m.Error
}

// MockAnnouncer records channel posts
type MockAnnouncer struct {
	mu sync.Mutex

	Error       error
	Targets     [][]status.Target
	Transitions []war.Transition
}

func (m *MockAnnouncer) AnnounceTargets(ctx context.Context, warID string, targets []status.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Targets = append(m.Targets, targets)
	return m.Error
}

func (m *MockAnnouncer) AnnounceTransition(ctx context.Context, transition war.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Transitions = append(m.Transitions, transition)
	return m.Error
}

// NotifierCall is one recorded Dispatch
type NotifierCall struct {
	Event   notify.EventType
	Message string
}

// MockNotifier records dispatched events
type MockNotifier struct {
	mu sync.Mutex

	Calls []NotifierCall
}

func (m *MockNotifier) Dispatch(ctx context.Context, event notify.EventType, message string) notify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, NotifierCall{Event: event, Message: message})
	return notify.Result{Event: event}
}

// Events returns the dispatched event types in order
func (m *MockNotifier) Events() []notify.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]notify.EventType, 0, len(m.Calls))
	for _, c := range m.Calls {
		events = append(events, c.Event)
	}
	return events
}

// MockStatusReporter records health status updates
type MockStatusReporter struct {
	mu sync.Mutex

	WarID     string
	Ongoing   bool
	LastCheck time.Time
}

func (m *MockStatusReporter) SetWar(warID string, ongoing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarID = warID
	m.Ongoing = ongoing
}

func (m *MockStatusReporter) MarkChecked(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCheck = at
}
