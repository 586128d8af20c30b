package processing

import (
	"context"
	"fmt"
	"os"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/notify"
	"torn_war_bot/internal/store"

	"github.com/rs/zerolog/log"
)

// Stores groups the four persisted documents
type Stores struct {
	Preferences *store.Document[map[string]notify.UserPreferences]
	History     *store.Document[[]war.WarHistoryEntry]
	Current     *store.Document[*war.WarSnapshot]
	Ledger      *store.Document[map[string]attack.WarLedger]
}

// NewStores places every document in dataDir, creating it if needed
func NewStores(dataDir string) (*Stores, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &Stores{
		Preferences: store.NewDocument[map[string]notify.UserPreferences](dataDir, store.PreferencesFile),
		History:     store.NewDocument[[]war.WarHistoryEntry](dataDir, store.WarHistoryFile),
		Current:     store.NewDocument[*war.WarSnapshot](dataDir, store.CurrentWarFile),
		Ledger:      store.NewDocument[map[string]attack.WarLedger](dataDir, store.AttackLedgerFile),
	}, nil
}

// Persisted is the state read once at startup
type Persisted struct {
	Preferences map[string]notify.UserPreferences
	History     []war.WarHistoryEntry
	Current     *war.WarSnapshot
	Ledger      map[string]attack.WarLedger
}

// Load reads every document. A missing file yields an empty value.
func (s *Stores) Load() (Persisted, error) {
	var p Persisted
	var err error

	if p.Preferences, err = s.Preferences.Load(); err != nil {
		return Persisted{}, err
	}
	if p.History, err = s.History.Load(); err != nil {
		return Persisted{}, err
	}
	if p.Current, err = s.Current.Load(); err != nil {
		return Persisted{}, err
	}
	if p.Ledger, err = s.Ledger.Load(); err != nil {
		return Persisted{}, err
	}

	log.Info().
		Int("users", len(p.Preferences)).
		Int("wars_in_history", len(p.History)).
		Int("ledger_wars", len(p.Ledger)).
		Bool("has_current_war", p.Current != nil).
		Msg("Loaded persisted state")

	return p, nil
}

// SavePreferences matches notify.Persister
func (s *Stores) SavePreferences(ctx context.Context, prefs map[string]notify.UserPreferences) error {
	return s.Preferences.Save(ctx, prefs)
}
