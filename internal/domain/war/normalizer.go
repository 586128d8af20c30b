package war

import (
	"encoding/json"

	"torn_war_bot/internal/app"
)

// Normalizer converts ranked war payloads from either Torn API schema into
// WarSnapshots for one tracked faction.
type Normalizer struct {
	trackedFactionID int
}

// NewNormalizer creates a normalizer for the given tracked faction
func NewNormalizer(trackedFactionID int) *Normalizer {
	return &Normalizer{trackedFactionID: trackedFactionID}
}

// TrackedFactionID returns the configured tracked faction id
func (n *Normalizer) TrackedFactionID() int {
	return n.trackedFactionID
}

// Normalize selects the current war from the payload. It returns (nil, nil)
// when the payload lists no ranked war at all.
func (n *Normalizer) Normalize(payload []byte) (*WarSnapshot, error) {
	return Normalize(payload, n.trackedFactionID, "")
}

// NormalizeWar selects a specific war by id, for historical queries.
func (n *Normalizer) NormalizeWar(payload []byte, warID string) (*WarSnapshot, error) {
	return Normalize(payload, n.trackedFactionID, warID)
}

// Normalize converts a raw ranked wars payload into a snapshot. When warID is
// empty the ongoing war is selected, falling back to the most recently ended
// one so a war's end can be observed; otherwise the war with that id.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func Normalize(payload []byte, trackedFactionID int, warID string) (*WarSnapshot, error) {
	var envelope app.RankedWarsEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &NormalizationError{Reason: MalformedPayload, Err: err}
	}

	if envelope.Error != nil {
		return nil, &NormalizationError{
			Reason: MalformedPayload,
			Detail: "payload carries an API error: " + envelope.Error.Error,
		}
	}

	wars := envelope.AllWars()

	var selected *app.RawWar
	if warID != "" {
		selected = findWar(wars, warID)
		if selected == nil {
			return nil, &NormalizationError{Reason: WarNotFound, WarID: warID}
		}
	} else {
		selected = selectCurrentWar(wars)
		if selected == nil {
			return nil, nil
		}
	}

	return snapshotFromWar(*selected, trackedFactionID)
}

func snapshotFromWar(raw app.RawWar, trackedFactionID int) (*WarSnapshot, error) {
	id := raw.Identifier()
	if id == "" {
		return nil, &NormalizationError{Reason: MalformedPayload, Detail: "war entry has no identifier"}
	}

	pair, err := IdentifyWarFactions(raw.Factions, trackedFactionID)
	if err != nil {
		if nerr, ok := err.(*NormalizationError); ok {
			nerr.WarID = id
		}
		return nil, err
	}

	start, end, target, winner := raw.Times()

	return &WarSnapshot{
		WarID:           id,
		TrackedFaction:  pair.Tracked,
		OpponentFaction: pair.Opponent,
		TargetScore:     target,
		StartTime:       start,
		EndTime:         end,
		WinnerID:        winner,
		Status:          deriveStatus(end),
	}, nil
}

func findWar(wars []app.RawWar, warID string) *app.RawWar {
	for i := range wars {
		if wars[i].Identifier() == warID {
			return &wars[i]
		}
	}
	return nil
}

// selectCurrentWar prefers the ongoing war with the latest start; with no
// ongoing war it returns the one that ended most recently.
func selectCurrentWar(wars []app.RawWar) *app.RawWar {
	var ongoing, ended *app.RawWar
	var ongoingStart, endedEnd int64

	for i := range wars {
		start, end, _, _ := wars[i].Times()
		if end == 0 {
			if ongoing == nil || start > ongoingStart {
				ongoing = &wars[i]
				ongoingStart = start
			}
			continue
		}
		if ended == nil || end > endedEnd {
			ended = &wars[i]
			endedEnd = end
		}
	}

	if ongoing != nil {
		return ongoing
	}
	return ended
}
