package mocks

import (
	"context"
	"sync"

	"torn_war_bot/internal/app"
)

// MockTornClient is a test double for the torn.Client
type MockTornClient struct {
	mu sync.Mutex

	// Responses to return. RankedWarsPayloads is consumed one per call and
	// the last entry repeats.
	RankedWarsPayloads [][]byte
	HistoryPayload     []byte
	MembersResponse    app.KeyedSet[app.RawMember]
	AttackPages        []app.KeyedSet[app.RawAttack]
	WarReportResponse  *app.RankedWarReport

	// Errors to return
	RankedWarsError error
	HistoryError    error
	MembersError    error
	AttacksError    error
	WarReportError  error

	// Call tracking
	RankedWarsCalls     int
	MembersCalledWith   []int
	AttacksCalledWith   [][2]int64
	WarReportCalledWith []string
}

// NewMockTornClient creates a new mock torn client
func NewMockTornClient() *MockTornClient {
	return &MockTornClient{}
}

func (m *MockTornClient) RankedWars(ctx context.Context, factionID int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RankedWarsCalls++
	if m.RankedWarsError != nil {
		return nil, m.RankedWarsError
	}
	if len(m.RankedWarsPayloads) == 0 {
		return []byte(`{}`), nil
	}
	i := m.RankedWarsCalls - 1
	if i >= len(m.RankedWarsPayloads) {
		i = len(m.RankedWarsPayloads) - 1
	}
	return m.RankedWarsPayloads[i], nil
}

func (m *MockTornClient) RankedWarHistory(ctx context.Context, factionID int) ([]byte, error) {
	return m.HistoryPayload, m.HistoryError
}

func (m *MockTornClient) Members(ctx context.Context, factionID int) (app.KeyedSet[app.RawMember], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MembersCalledWith = append(m.MembersCalledWith, factionID)
	return m.MembersResponse, m.MembersError
}

func (m *MockTornClient) AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.AttacksCalledWith)
	m.AttacksCalledWith = append(m.AttacksCalledWith, [2]int64{from, to})
	if m.AttacksError != nil {
		return app.KeyedSet[app.RawAttack]{}, m.AttacksError
	}
	if call >= len(m.AttackPages) {
		return app.KeyedSet[app.RawAttack]{}, nil
	}
	return m.AttackPages[call], nil
}

func (m *MockTornClient) WarReport(ctx context.Context, warID string) (*app.RankedWarReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WarReportCalledWith = append(m.WarReportCalledWith, warID)
	return m.WarReportResponse, m.WarReportError
}
