// Package archive streams finished wars into BigQuery for long term
// analysis. One row goes to the wars table and one row per recorded attack
// goes to the attacks table.
package archive

import (
	"context"
	"fmt"
	"time"

	"torn_war_bot/internal/config"
	"torn_war_bot/internal/domain/leaderboard"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const (
	warsTable    = "wars"
	attacksTable = "attacks"
)

// RowInserter streams rows into a table. *bigquery.Inserter implements it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// WarRow is one finished war
type WarRow struct {
	WarID         string    `bigquery:"war_id"`
	FactionID     string    `bigquery:"faction_id"`
	FactionName   string    `bigquery:"faction_name"`
	OpponentID    string    `bigquery:"opponent_id"`
	OpponentName  string    `bigquery:"opponent_name"`
	FactionScore  int64     `bigquery:"faction_score"`
	OpponentScore int64     `bigquery:"opponent_score"`
	TargetScore   int64     `bigquery:"target_score"`
	StartTime     time.Time `bigquery:"start_time"`
	EndTime       time.Time `bigquery:"end_time"`
	Outcome       string    `bigquery:"outcome"`
	Source        string    `bigquery:"contributor_source"`
	Contributors  int       `bigquery:"contributors"`
	TotalPoints   float64   `bigquery:"total_points"`
	RecordedAt    time.Time `bigquery:"recorded_at"`
}

// AttackRow is one ledger record of a finished war
type AttackRow struct {
	WarID      string    `bigquery:"war_id"`
	AttackID   string    `bigquery:"attack_id"`
	UpstreamID string    `bigquery:"upstream_id"`
	AttackerID string    `bigquery:"attacker_id"`
	DefenderID string    `bigquery:"defender_id"`
	Result     string    `bigquery:"result"`
	Points     float64   `bigquery:"points"`
	Source     string    `bigquery:"source"`
	RecordedBy string    `bigquery:"recorded_by"`
	Timestamp  time.Time `bigquery:"timestamp"`
}

// Archiver writes war summaries into two BigQuery tables
type Archiver struct {
	wars    RowInserter
	attacks RowInserter
	retry   config.RetryConfig
	closer  func() error
}

// NewArchiver creates an archiver over the given inserters
func NewArchiver(wars, attacks RowInserter) *Archiver {
	return &Archiver{
		wars:    wars,
		attacks: attacks,
		retry:   config.DefaultResilienceConfig.SheetWrite,
		closer:  func() error { return nil },
	}
}

// NewBigQueryArchiver connects to BigQuery and targets the wars and attacks
// tables of the dataset. The tables must already exist.
func NewBigQueryArchiver(ctx context.Context, projectID, datasetID, credentialsFile string) (*Archiver, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	dataset := client.Dataset(datasetID)
	a := NewArchiver(dataset.Table(warsTable).Inserter(), dataset.Table(attacksTable).Inserter())
	a.closer = client.Close
	return a, nil
}

// Name identifies the exporter in logs
func (a *Archiver) Name() string {
	return "bigquery"
}

// Close releases the BigQuery client
func (a *Archiver) Close() error {
	return a.closer()
}

// ExportWar inserts the war row and its attack rows. Insert ids are derived
// from the war and attack ids so a retried export does not duplicate rows
// within BigQuery's dedupe window.
func (a *Archiver) ExportWar(ctx context.Context, summary leaderboard.WarSummary) error {
	warSaver := &bigquery.StructSaver{
		Struct:   BuildWarRow(summary),
		InsertID: "war-" + summary.Entry.WarID,
	}
	if err := a.retry.Do(ctx, "archive war", func(ctx context.Context) error {
		return a.wars.Put(ctx, warSaver)
	}); err != nil {
		return fmt.Errorf("failed to archive war %s: %w", summary.Entry.WarID, err)
	}

	rows := BuildAttackRows(summary)
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, &bigquery.StructSaver{
			Struct:   row,
			InsertID: row.WarID + "-" + row.AttackID,
		})
	}
	if err := a.retry.Do(ctx, "archive attacks", func(ctx context.Context) error {
		return a.attacks.Put(ctx, savers)
	}); err != nil {
		return fmt.Errorf("failed to archive attacks for war %s: %w", summary.Entry.WarID, err)
	}

	log.Info().
		Str("war_id", summary.Entry.WarID).
		Int("attack_rows", len(rows)).
		Msg("Archived war to BigQuery")

	return nil
}

// BuildWarRow flattens a summary into its wars table row
func BuildWarRow(s leaderboard.WarSummary) WarRow {
	e := s.Entry
	return WarRow{
		WarID:         e.WarID,
		FactionID:     e.TrackedID,
		FactionName:   e.TrackedName,
		OpponentID:    e.OpponentID,
		OpponentName:  e.OpponentName,
		FactionScore:  e.TrackedScore,
		OpponentScore: e.OpponentScore,
		TargetScore:   e.TargetScore,
		StartTime:     unixUTC(e.StartTime),
		EndTime:       unixUTC(e.EndTime),
		Outcome:       string(e.Outcome),
		Source:        string(s.Source),
		Contributors:  len(s.Contributors),
		TotalPoints:   s.TotalPoints(),
		RecordedAt:    unixUTC(e.RecordedAt),
	}
}

// BuildAttackRows flattens the summary's ledger records
func BuildAttackRows(s leaderboard.WarSummary) []AttackRow {
	rows := make([]AttackRow, 0, len(s.Attacks))
	for _, r := range s.Attacks {
		rows = append(rows, AttackRow{
			WarID:      s.Entry.WarID,
			AttackID:   r.ID,
			UpstreamID: r.UpstreamID,
			AttackerID: r.AttackerID,
			DefenderID: r.DefenderID,
			Result:     r.Result,
			Points:     r.Points,
			Source:     string(r.Source),
			RecordedBy: r.RecordedBy,
			Timestamp:  unixUTC(r.Timestamp),
		})
	}
	return rows
}

func unixUTC(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
