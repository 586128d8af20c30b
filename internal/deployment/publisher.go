package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"torn_war_bot/internal/config"
	"torn_war_bot/internal/domain/leaderboard"
)

// Uploader stores a named file somewhere reachable by the status page.
// *SSHDeployer implements it.
type Uploader interface {
	Upload(filename string, data []byte) error
}

// LatestFilename always holds the most recently finished war
const LatestFilename = "latest.json"

// WarStatusDocument is the JSON published for each finished war
type WarStatusDocument struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	WarID         string                    `json:"war_id"`
	Faction       string                    `json:"faction"`
	Opponent      string                    `json:"opponent"`
	Score         int64                     `json:"score"`
	OpponentScore int64                     `json:"opponent_score"`
	Outcome       string                    `json:"outcome"`
	Source        leaderboard.Source        `json:"contributor_source"`
	TotalPoints   float64                   `json:"total_points"`
	Contributors  []leaderboard.Contributor `json:"contributors"`
}

// StatusPublisher publishes war summaries as JSON files
type StatusPublisher struct {
	uploader Uploader
	retry    config.RetryConfig
	now      func() time.Time
}

// NewStatusPublisher creates a publisher over the given uploader
func NewStatusPublisher(uploader Uploader) *StatusPublisher {
	return &StatusPublisher{
		uploader: uploader,
		retry:    config.DefaultResilienceConfig.SheetWrite,
		now:      time.Now,
	}
}

// Name identifies the exporter in logs
func (p *StatusPublisher) Name() string {
	return "status_publish"
}

// ExportWar uploads war_<id>.json and then overwrites latest.json
func (p *StatusPublisher) ExportWar(ctx context.Context, summary leaderboard.WarSummary) error {
	data, err := json.MarshalIndent(BuildStatusDocument(summary, p.now()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal war status: %w", err)
	}

	for _, name := range []string{WarFilename(summary.Entry.WarID), LatestFilename} {
		err := p.retry.Do(ctx, "upload "+name, func(context.Context) error {
			return p.uploader.Upload(name, data)
		})
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
	}
	return nil
}

// WarFilename returns the per-war file name
func WarFilename(warID string) string {
	return fmt.Sprintf("war_%s.json", warID)
}

// BuildStatusDocument flattens a summary into the published document
func BuildStatusDocument(s leaderboard.WarSummary, now time.Time) WarStatusDocument {
	contributors := s.Contributors
	if contributors == nil {
		contributors = []leaderboard.Contributor{}
	}
	return WarStatusDocument{
		GeneratedAt:   now.UTC(),
		WarID:         s.Entry.WarID,
		Faction:       s.Entry.TrackedName,
		Opponent:      s.Entry.OpponentName,
		Score:         s.Entry.TrackedScore,
		OpponentScore: s.Entry.OpponentScore,
		Outcome:       string(s.Entry.Outcome),
		Source:        s.Source,
		TotalPoints:   s.TotalPoints(),
		Contributors:  contributors,
	}
}
