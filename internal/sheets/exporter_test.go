package sheets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/war"
)

// MockSheetsAPI implements SheetsAPI for testing
type MockSheetsAPI struct {
	sheets      map[string]bool            // Track which sheets exist
	data        map[string][][]interface{} // Store sheet data
	shouldError bool
	appendCalls int
}

func NewMockSheetsAPI() *MockSheetsAPI {
	return &MockSheetsAPI{
		sheets: make(map[string]bool),
		data:   make(map[string][][]interface{}),
	}
}

var errMock = errors.New("mock sheets error")

func sheetNameFromRange(range_ string) string {
	sheetName := range_
	if i := strings.Index(range_, "!"); i != -1 {
		sheetName = range_[:i]
	}
	return strings.Trim(sheetName, "'\"")
}

func (m *MockSheetsAPI) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	if m.shouldError {
		return nil, errMock
	}
	return m.data[sheetNameFromRange(range_)], nil
}

func (m *MockSheetsAPI) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	if m.shouldError {
		return errMock
	}
	m.data[sheetNameFromRange(range_)] = values
	return nil
}

func (m *MockSheetsAPI) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	if m.shouldError {
		return errMock
	}
	m.appendCalls++
	name := sheetNameFromRange(range_)
	m.data[name] = append(m.data[name], rows...)
	return nil
}

func (m *MockSheetsAPI) CreateSheet(ctx context.Context, spreadsheetID, sheetName string) error {
	if m.shouldError {
		return errMock
	}
	m.sheets[sheetName] = true
	return nil
}

func (m *MockSheetsAPI) SheetExists(ctx context.Context, spreadsheetID, sheetName string) (bool, error) {
	if m.shouldError {
		return false, errMock
	}
	return m.sheets[sheetName], nil
}

func (m *MockSheetsAPI) EnsureSheetCapacity(ctx context.Context, spreadsheetID, sheetName string, requiredRows, requiredCols int) error {
	if m.shouldError {
		return errMock
	}
	return nil
}

func testSummary() leaderboard.WarSummary {
	entry := war.WarHistoryEntry{
		WarID:         "555",
		TrackedID:     "1001",
		TrackedName:   "Home",
		OpponentID:    "2002",
		OpponentName:  "Away",
		TrackedScore:  3100,
		OpponentScore: 1500,
		TargetScore:   3000,
		StartTime:     1700000000,
		EndTime:       1700090000,
		WinnerID:      "1001",
		Outcome:       war.OutcomeTracked,
		RecordedAt:    1700090100,
	}
	records := []attack.AttackRecord{
		{ID: "a1", AttackerID: "11", AttackerName: "alice", DefenderID: "21", Points: 4.5, Timestamp: 1700000100, Source: attack.SourceAPI},
		{ID: "a2", AttackerID: "12", AttackerName: "bob", DefenderID: "22", Points: 2, Timestamp: 1700000200, Source: attack.SourceManual, RecordedBy: "u1"},
	}
	return leaderboard.Summarize(entry, war.WarSnapshot{WarID: "555"}, nil, false, records)
}

func TestWarReportExporter_ExportWar(t *testing.T) {
	api := NewMockSheetsAPI()
	exporter := NewWarReportExporter(api, "sheet-id")

	if exporter.Name() != "sheets" {
		t.Errorf("Name() = %q", exporter.Name())
	}

	if err := exporter.ExportWar(context.Background(), testSummary()); err != nil {
		t.Fatalf("ExportWar failed: %v", err)
	}

	for _, name := range []string{SummaryTabName("555"), ContributorsTabName("555"), AttacksTabName("555"), HistorySheetName} {
		if !api.sheets[name] {
			t.Errorf("expected sheet %q to be created", name)
		}
	}

	contributors := api.data[ContributorsTabName("555")]
	if len(contributors) != 3 {
		t.Fatalf("expected header plus 2 contributor rows, got %d", len(contributors))
	}
	if contributors[1][2] != "alice" {
		t.Errorf("expected top contributor alice, got %v", contributors[1][2])
	}

	attacks := api.data[AttacksTabName("555")]
	if len(attacks) != 3 {
		t.Errorf("expected header plus 2 attack rows, got %d", len(attacks))
	}

	history := api.data[HistorySheetName]
	if len(history) != 2 {
		t.Fatalf("expected header plus 1 history row, got %d", len(history))
	}
	if history[1][0] != "555" || history[1][8] != "tracked" {
		t.Errorf("unexpected history row: %v", history[1])
	}
}

func TestWarReportExporter_HistoryNotDuplicated(t *testing.T) {
	api := NewMockSheetsAPI()
	exporter := NewWarReportExporter(api, "sheet-id")

	for i := 0; i < 2; i++ {
		if err := exporter.ExportWar(context.Background(), testSummary()); err != nil {
			t.Fatalf("ExportWar %d failed: %v", i, err)
		}
	}

	if api.appendCalls != 1 {
		t.Errorf("expected one history append, got %d", api.appendCalls)
	}
	if len(api.data[HistorySheetName]) != 2 {
		t.Errorf("expected history to keep one row, got %d rows", len(api.data[HistorySheetName]))
	}
}

func TestWarReportExporter_HistoryHeaderOnBlankSheet(t *testing.T) {
	api := NewMockSheetsAPI()
	api.sheets[HistorySheetName] = true
	api.data[HistorySheetName] = [][]interface{}{{""}, {}}

	if err := NewWarReportExporter(api, "sheet-id").ExportWar(context.Background(), testSummary()); err != nil {
		t.Fatalf("ExportWar failed: %v", err)
	}

	history := api.data[HistorySheetName]
	if len(history) != 2 || history[0][0] != "War ID" || history[1][0] != "555" {
		t.Errorf("expected header plus one history row, got %v", history)
	}
}

func TestWarReportExporter_Error(t *testing.T) {
	api := NewMockSheetsAPI()
	api.shouldError = true

	err := NewWarReportExporter(api, "sheet-id").ExportWar(context.Background(), testSummary())
	if !errors.Is(err, errMock) {
		t.Errorf("expected wrapped mock error, got %v", err)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		raw   interface{}
		str   string
		empty bool
	}{
		{nil, "", true},
		{"   ", "", true},
		{" 555 ", "555", false},
		{float64(12), "12", false},
		{"abc", "abc", false},
	}

	for _, tt := range tests {
		c := NewCell(tt.raw)
		if c.String() != tt.str {
			t.Errorf("String(%v) = %q, want %q", tt.raw, c.String(), tt.str)
		}
		if c.IsEmpty() != tt.empty {
			t.Errorf("IsEmpty(%v) = %v, want %v", tt.raw, c.IsEmpty(), tt.empty)
		}
	}
}

func TestFormatUnix(t *testing.T) {
	if got := formatUnix(0); got != "" {
		t.Errorf("formatUnix(0) = %q", got)
	}
	if got := formatUnix(1700000000); got != "2023-11-14 22:13:20" {
		t.Errorf("formatUnix = %q", got)
	}
}
