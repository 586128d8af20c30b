package processing

import (
	"context"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/notify"
)

// TornClientInterface defines the torn API client methods used by Service
type TornClientInterface interface {
	RankedWars(ctx context.Context, factionID int) ([]byte, error)
	RankedWarHistory(ctx context.Context, factionID int) ([]byte, error)
	Members(ctx context.Context, factionID int) (app.KeyedSet[app.RawMember], error)
	AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error)
	WarReport(ctx context.Context, warID string) (*app.RankedWarReport, error)
}

// CacheInvalidatorInterface is implemented by Torn clients that cache
// responses which go stale when a war starts or ends
type CacheInvalidatorInterface interface {
	ClearCache()
}

// NotifierInterface fans an event out to opted-in users
type NotifierInterface interface {
	Dispatch(ctx context.Context, event notify.EventType, message string) notify.Result
}

// AnnouncerInterface posts to the bot's channel
type AnnouncerInterface interface {
	AnnounceTargets(ctx context.Context, warID string, targets []status.Target) error
	AnnounceTransition(ctx context.Context, transition war.Transition) error
}

// WarExporterInterface receives the summary of every ended war. Exporters run
// after the state has been updated and their failures are only logged.
type WarExporterInterface interface {
	Name() string
	ExportWar(ctx context.Context, summary leaderboard.WarSummary) error
}

// StatusReporterInterface receives liveness updates for the health endpoint
type StatusReporterInterface interface {
	SetWar(warID string, ongoing bool)
	MarkChecked(at time.Time)
}
