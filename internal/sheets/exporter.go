package sheets

import (
	"context"
	"fmt"
	"time"

	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/war"

	"github.com/rs/zerolog/log"
)

// HistorySheetName is the tab that gets one row per finished war
const HistorySheetName = "War History"

// WarReportExporter writes a finished war's summary into a spreadsheet.
// Each war gets its own Summary, Contributors and Attacks tabs.
type WarReportExporter struct {
	api           SheetsAPI
	spreadsheetID string
}

// NewWarReportExporter creates an exporter writing into spreadsheetID
func NewWarReportExporter(api SheetsAPI, spreadsheetID string) *WarReportExporter {
	return &WarReportExporter{api: api, spreadsheetID: spreadsheetID}
}

// Name identifies the exporter in logs
func (e *WarReportExporter) Name() string {
	return "sheets"
}

// ExportWar writes the per-war tabs and appends the war to the history tab
// if it is not already listed there. Re-exporting a war overwrites its tabs.
func (e *WarReportExporter) ExportWar(ctx context.Context, summary leaderboard.WarSummary) error {
	warID := summary.Entry.WarID

	tabs := []struct {
		name string
		rows [][]interface{}
	}{
		{SummaryTabName(warID), summaryRows(summary)},
		{ContributorsTabName(warID), contributorRows(summary.Contributors)},
		{AttacksTabName(warID), attackRows(summary)},
	}

	for _, tab := range tabs {
		if err := e.writeTab(ctx, tab.name, tab.rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", tab.name, err)
		}
	}

	if err := e.appendHistory(ctx, summary.Entry); err != nil {
		return fmt.Errorf("failed to update war history: %w", err)
	}

	log.Info().
		Str("war_id", warID).
		Int("contributors", len(summary.Contributors)).
		Int("attacks", len(summary.Attacks)).
		Msg("Exported war report to sheets")

	return nil
}

func (e *WarReportExporter) ensureSheet(ctx context.Context, name string) error {
	exists, err := e.api.SheetExists(ctx, e.spreadsheetID, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.Debug().Str("sheet_name", name).Msg("Creating sheet")
	return e.api.CreateSheet(ctx, e.spreadsheetID, name)
}

func (e *WarReportExporter) writeTab(ctx context.Context, name string, rows [][]interface{}) error {
	if err := e.ensureSheet(ctx, name); err != nil {
		return err
	}
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if err := e.api.EnsureSheetCapacity(ctx, e.spreadsheetID, name, len(rows), cols); err != nil {
		return err
	}
	return e.api.UpdateRange(ctx, e.spreadsheetID, fmt.Sprintf("'%s'!A1", name), rows)
}

func (e *WarReportExporter) appendHistory(ctx context.Context, entry war.WarHistoryEntry) error {
	if err := e.ensureSheet(ctx, HistorySheetName); err != nil {
		return err
	}

	existing, err := e.api.ReadSheet(ctx, e.spreadsheetID, fmt.Sprintf("'%s'!A:A", HistorySheetName))
	if err != nil {
		return err
	}
	hasRows := false
	for _, row := range existing {
		if len(row) == 0 || NewCell(row[0]).IsEmpty() {
			continue
		}
		hasRows = true
		if NewCell(row[0]).String() == entry.WarID {
			log.Debug().Str("war_id", entry.WarID).Msg("War already in history sheet")
			return nil
		}
	}
	if !hasRows {
		if err := e.api.UpdateRange(ctx, e.spreadsheetID, fmt.Sprintf("'%s'!A1", HistorySheetName), [][]interface{}{historyHeader}); err != nil {
			return err
		}
	}

	return e.api.AppendRows(ctx, e.spreadsheetID, fmt.Sprintf("'%s'!A:K", HistorySheetName), [][]interface{}{historyRow(entry)})
}

// SummaryTabName returns the summary tab name for a war
func SummaryTabName(warID string) string { return "Summary - " + warID }

// ContributorsTabName returns the contributors tab name for a war
func ContributorsTabName(warID string) string { return "Contributors - " + warID }

// AttacksTabName returns the attacks tab name for a war
func AttacksTabName(warID string) string { return "Attacks - " + warID }

var historyHeader = []interface{}{
	"War ID", "Start", "End", "Faction", "Opponent", "Score", "Opponent Score",
	"Target", "Outcome", "Winner ID", "Recorded",
}

func historyRow(entry war.WarHistoryEntry) []interface{} {
	return []interface{}{
		entry.WarID,
		formatUnix(entry.StartTime),
		formatUnix(entry.EndTime),
		entry.TrackedName,
		entry.OpponentName,
		entry.TrackedScore,
		entry.OpponentScore,
		entry.TargetScore,
		string(entry.Outcome),
		entry.WinnerID,
		formatUnix(entry.RecordedAt),
	}
}

func summaryRows(s leaderboard.WarSummary) [][]interface{} {
	e := s.Entry
	return [][]interface{}{
		{"War ID", e.WarID},
		{"Faction", fmt.Sprintf("%s [%s]", e.TrackedName, e.TrackedID)},
		{"Opponent", fmt.Sprintf("%s [%s]", e.OpponentName, e.OpponentID)},
		{"Start", formatUnix(e.StartTime)},
		{"End", formatUnix(e.EndTime)},
		{"Score", fmt.Sprintf("%d - %d", e.TrackedScore, e.OpponentScore)},
		{"Target", e.TargetScore},
		{"Outcome", string(e.Outcome)},
		{"Contributor Source", string(s.Source)},
		{"Contributors", len(s.Contributors)},
		{"Total Points", s.TotalPoints()},
		{"Recorded Attacks", len(s.Attacks)},
	}
}

func contributorRows(contributors []leaderboard.Contributor) [][]interface{} {
	rows := [][]interface{}{{"Rank", "Member ID", "Name", "Level", "Attacks", "Points"}}
	for i, c := range contributors {
		rows = append(rows, []interface{}{i + 1, c.MemberID, c.Name, c.Level, c.Attacks, c.Points})
	}
	return rows
}

func attackRows(s leaderboard.WarSummary) [][]interface{} {
	rows := [][]interface{}{{"ID", "Time", "Attacker ID", "Attacker", "Defender ID", "Defender", "Result", "Points", "Source", "Recorded By"}}
	for _, a := range s.Attacks {
		rows = append(rows, []interface{}{
			a.ID,
			formatUnix(a.Timestamp),
			a.AttackerID,
			a.AttackerName,
			a.DefenderID,
			a.DefenderName,
			a.Result,
			a.Points,
			string(a.Source),
			a.RecordedBy,
		})
	}
	return rows
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
