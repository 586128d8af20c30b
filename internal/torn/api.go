package torn

import (
	"context"

	"torn_war_bot/internal/app"
)

// TornAPI defines the interface for interacting with the Torn API
// This separates infrastructure concerns from business logic
type TornAPI interface {
	// RankedWars returns the raw ranked war payload for the war normalizer
	RankedWars(ctx context.Context, factionID int) ([]byte, error)
	// RankedWarHistory returns the raw payload listing past ranked wars
	RankedWarHistory(ctx context.Context, factionID int) ([]byte, error)
	Members(ctx context.Context, factionID int) (app.KeyedSet[app.RawMember], error)
	AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error)
	WarReport(ctx context.Context, warID string) (*app.RankedWarReport, error)

	// API call tracking
	GetAPICallCount() int64
	ResetAPICallCount()
}

// CallTracker observes every request made, by endpoint name
type CallTracker interface {
	RecordCall(endpoint string, err error)
}
