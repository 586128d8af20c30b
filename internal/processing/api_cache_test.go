package processing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/processing/mocks"
)

func decodeMembers(t *testing.T, payload string) app.KeyedSet[app.RawMember] {
	t.Helper()
	var env app.MembersEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	return env.Members
}

func decodeReport(t *testing.T, payload string) *app.RankedWarReport {
	t.Helper()
	var env app.ReportEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	return env.Report
}

func TestCachedTornClient_Members(t *testing.T) {
	mockClient := mocks.NewMockTornClient()
	mockClient.MembersResponse = decodeMembers(t, `{"members": {"3001": {"name": "Target", "status": {"state": "Okay"}}}}`)

	clock := time.Unix(1700000000, 0)
	cached := NewCachedTornClient(mockClient, APICacheConfig{MembersTTL: 15 * time.Second, HistoryTTL: time.Minute})
	cached.now = func() time.Time { return clock }

	ctx := context.Background()

	first, err := cached.Members(ctx, 2002)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Len() != 1 {
		t.Errorf("Expected 1 member, got %d", first.Len())
	}

	clock = clock.Add(10 * time.Second)
	if _, err := cached.Members(ctx, 2002); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mockClient.MembersCalledWith) != 1 {
		t.Errorf("Expected cached second call, got %d upstream calls", len(mockClient.MembersCalledWith))
	}

	// a different faction is a separate entry
	if _, err := cached.Members(ctx, 3003); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mockClient.MembersCalledWith) != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", len(mockClient.MembersCalledWith))
	}

	clock = clock.Add(10 * time.Second)
	if _, err := cached.Members(ctx, 2002); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mockClient.MembersCalledWith) != 3 {
		t.Errorf("Expected expired entry to be refetched, got %d upstream calls", len(mockClient.MembersCalledWith))
	}

	stats := cached.GetCacheStats()
	if stats.Hits != 1 || stats.Misses != 3 {
		t.Errorf("Expected 1 hit and 3 misses, got %d and %d", stats.Hits, stats.Misses)
	}
}

func TestCachedTornClient_WarReport(t *testing.T) {
	tests := []struct {
		name          string
		report        string
		expectedCalls int
	}{
		{
			name:          "ended report is cached",
			report:        `{"rankedwarreport": {"id": 1, "start": 1700000000, "end": 1700090000, "factions": []}}`,
			expectedCalls: 1,
		},
		{
			name:          "running war is not cached",
			report:        `{"rankedwarreport": {"id": 1, "start": 1700000000, "end": 0, "factions": []}}`,
			expectedCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := mocks.NewMockTornClient()
			mockClient.WarReportResponse = decodeReport(t, tt.report)
			cached := NewCachedTornClient(mockClient, DefaultAPICacheConfig())

			for i := 0; i < 2; i++ {
				if _, err := cached.WarReport(context.Background(), "1"); err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
			}

			if len(mockClient.WarReportCalledWith) != tt.expectedCalls {
				t.Errorf("Expected %d upstream calls, got %d", tt.expectedCalls, len(mockClient.WarReportCalledWith))
			}
		})
	}
}

func TestCachedTornClient_RankedWarsPassThrough(t *testing.T) {
	mockClient := mocks.NewMockTornClient()
	cached := NewCachedTornClient(mockClient, DefaultAPICacheConfig())

	for i := 0; i < 3; i++ {
		if _, err := cached.RankedWars(context.Background(), 1001); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if mockClient.RankedWarsCalls != 3 {
		t.Errorf("Expected every poll to go upstream, got %d calls", mockClient.RankedWarsCalls)
	}
}

func TestCachedTornClient_ClearCache(t *testing.T) {
	mockClient := mocks.NewMockTornClient()
	mockClient.HistoryPayload = []byte(`{"rankedwars": []}`)
	mockClient.WarReportResponse = decodeReport(t, `{"rankedwarreport": {"id": 1, "start": 1700000000, "end": 1700090000, "factions": []}}`)
	cached := NewCachedTornClient(mockClient, DefaultAPICacheConfig())
	ctx := context.Background()

	if _, err := cached.RankedWarHistory(ctx, 1001); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := cached.Members(ctx, 2002); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := cached.WarReport(ctx, "1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := cached.GetCacheStats().TotalEntries; got != 3 {
		t.Errorf("Expected 3 cache entries, got %d", got)
	}

	cached.ClearCache()
	if got := cached.GetCacheStats().TotalEntries; got != 1 {
		t.Errorf("Expected only the ended report to stay cached, got %d entries", got)
	}

	if _, err := cached.Members(ctx, 2002); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mockClient.MembersCalledWith) != 2 {
		t.Errorf("Expected members refetched after clear, got %d upstream calls", len(mockClient.MembersCalledWith))
	}
	cached.LogCacheStats()
}
