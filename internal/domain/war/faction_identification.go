package war

import (
	"fmt"

	"torn_war_bot/internal/app"
)

// FactionPair represents the tracked faction and its opponent in a war
type FactionPair struct {
	Tracked  FactionSide
	Opponent FactionSide
}

// IdentifyWarFactions partitions the faction entries of a war into the
// tracked faction and the opponent. Ids are coerced to integers only for the
// comparison; the canonical id is kept as provided (or taken from the map key
// when the entry itself carries none).
//
// Pure function: No I/O operations, fully testable with direct inputs.
func IdentifyWarFactions(factions app.KeyedSet[app.RawFaction], trackedFactionID int) (FactionPair, error) {
	var pair FactionPair

	count := factions.Len()
	if count != 2 {
		return pair, &NormalizationError{
			Reason: AmbiguousFactions,
			Detail: fmt.Sprintf("expected 2 factions, found %d", count),
		}
	}

	trackedIdx := -1
	for i, raw := range factions.Entries {
		id := raw.ID
		if id == "" {
			id = app.FlexID(factions.KeyAt(i))
		}
		if n, ok := id.Int(); ok && n == trackedFactionID {
			if trackedIdx >= 0 {
				return pair, &NormalizationError{
					Reason: AmbiguousFactions,
					Detail: fmt.Sprintf("tracked faction %d appears more than once", trackedFactionID),
				}
			}
			trackedIdx = i
		}
	}

	if trackedIdx < 0 {
		return pair, &NormalizationError{
			Reason: TrackedFactionMissing,
			Detail: fmt.Sprintf("tracked faction %d not present", trackedFactionID),
		}
	}

	for i, raw := range factions.Entries {
		side := toFactionSide(raw, factions.KeyAt(i))
		if i == trackedIdx {
			pair.Tracked = side
		} else {
			pair.Opponent = side
		}
	}

	return pair, nil
}

func toFactionSide(raw app.RawFaction, key string) FactionSide {
	id := raw.ID.String()
	if id == "" {
		id = key
	}

	name := raw.Name
	if name == "" {
		name = UnknownName
	}

	return FactionSide{
		ID:    id,
		Name:  name,
		Score: int64(raw.Score),
		Chain: int64(raw.Chain),
	}
}
