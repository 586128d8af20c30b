package processing

import (
	"sync"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/claim"
	"torn_war_bot/internal/domain/war"
)

// AppState is the mutable core shared by the scheduler and the command
// handlers. Every read-modify-write happens under mu and no network I/O is
// done while it is held. Notification preferences carry their own lock.
type AppState struct {
	mu sync.Mutex

	tracker *war.Tracker
	claims  *claim.Registry
	ledger  *attack.Ledger
	history *war.History

	// member ids surfaced by the previous target scan
	surfaced map[string]bool
	// tracked faction chain at the previous poll, for milestone detection
	lastChain int64
}

// StateOptions are the policy knobs of the core
type StateOptions struct {
	TrackedFactionID int
	ClaimOverwrite   bool
	Dedupe           attack.DedupePolicy
}

// NewAppState builds the core from persisted documents. A persisted current
// war seeds the tracker so a restart mid-war still ends it exactly once.
func NewAppState(opts StateOptions, persisted Persisted) *AppState {
	s := &AppState{
		claims:   claim.NewRegistry(opts.ClaimOverwrite),
		ledger:   attack.NewLedger(persisted.Ledger, opts.Dedupe),
		history:  war.NewHistory(persisted.History),
		surfaced: make(map[string]bool),
	}
	s.tracker = war.NewTracker(war.NewNormalizer(opts.TrackedFactionID), s.history, s.claims)
	if persisted.Current != nil {
		s.tracker.Restore(persisted.Current)
		s.lastChain = persisted.Current.TrackedFaction.Chain
	}
	return s
}

// stampFor returns the ledger stamp for the held war, nil when none is held
func stampFor(snapshot *war.WarSnapshot) *attack.WarStamp {
	if snapshot == nil {
		return nil
	}
	return &attack.WarStamp{
		WarID:     snapshot.WarID,
		FactionID: snapshot.TrackedFaction.ID,
		StartTime: snapshot.StartTime,
	}
}
