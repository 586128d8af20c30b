package torn

import (
	"context"
	"fmt"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/domain/attack"

	"github.com/rs/zerolog/log"
)

// MaxAttackPages bounds a single backward fetch
const MaxAttackPages = 100

// AttackPager fetches one page of faction attacks
type AttackPager interface {
	AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error)
}

// AttackFetcher walks the attack history backwards from the end of a window
// and keeps the attacks on the opponent faction
type AttackFetcher struct {
	api AttackPager
}

// NewAttackFetcher creates a fetcher over the given pager
func NewAttackFetcher(api AttackPager) *AttackFetcher {
	return &AttackFetcher{api: api}
}

// FetchWarAttacks returns API-sourced records made between from and to
// against opponentID, oldest first
func (f *AttackFetcher) FetchWarAttacks(ctx context.Context, window attack.TimeRangeResult, opponentID string) ([]attack.AttackRecord, error) {
	log.Info().
		Str("update_mode", window.UpdateMode).
		Int64("fetch_from", window.FromTime).
		Int64("fetch_to", window.ToTime).
		Str("fetch_from_str", time.Unix(window.FromTime, 0).UTC().Format("2006-01-02 15:04:05")).
		Str("fetch_to_str", time.Unix(window.ToTime, 0).UTC().Format("2006-01-02 15:04:05")).
		Str("opponent_id", opponentID).
		Msg("Fetching attacks for war")

	var records []attack.AttackRecord
	currentTo := window.ToTime

	for page := 1; page <= MaxAttackPages; page++ {
		attacks, err := f.api.AttacksPage(ctx, window.FromTime, currentTo)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch attacks for timeframe %d-%d: %w", window.FromTime, currentTo, err)
		}

		relevant := attack.FilterWarAttacks(attacks, window.FromTime, opponentID)
		records = append(records, relevant...)

		oldest := attack.OldestTimestamp(attacks, currentTo)
		decision := attack.NextPage(attacks.Len(), oldest, window.FromTime, attack.PageSize)

		log.Debug().
			Int("page", page).
			Int("attacks_in_page", attacks.Len()).
			Int("relevant_attacks_in_page", len(relevant)).
			Int64("oldest_attack_time", oldest).
			Str("decision", string(decision.Reason)).
			Msg("Processed attacks page")

		if decision.Stop {
			break
		}
		currentTo = decision.NextTo
	}

	records = attack.SortChronologically(records)

	log.Info().
		Int("total_relevant_attacks", len(records)).
		Str("mode", window.UpdateMode).
		Msg("Completed fetching attacks for war")

	return records, nil
}
