package attack

import (
	"strconv"

	"torn_war_bot/internal/app"

	"github.com/google/uuid"
)

// Observed is an upstream attack with participant ids resolved from either
// payload shape. Faction ids are empty when the payload omits them.
type Observed struct {
	UpstreamID        string
	AttackerID        string
	AttackerName      string
	AttackerFactionID string
	DefenderID        string
	DefenderName      string
	DefenderFactionID string
	Timestamp         int64
	Result            string
	Points            float64
}

// Extract resolves attacker and defender from the nested (v2) or flat (v1)
// attack shape. key is the enclosing map key, if any. The second value is
// false when either participant id cannot be resolved.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func Extract(raw app.RawAttack, key string) (Observed, bool) {
	obs := Observed{
		UpstreamID:        raw.ID.String(),
		AttackerID:        raw.AttackerID.String(),
		AttackerName:      raw.AttackerName,
		AttackerFactionID: raw.AttackerFaction.String(),
		DefenderID:        raw.DefenderID.String(),
		DefenderName:      raw.DefenderName,
		DefenderFactionID: raw.DefenderFaction.String(),
		Result:            raw.Result,
		Points:            PointsFor(raw),
	}
	if obs.UpstreamID == "" {
		obs.UpstreamID = key
	}
	if obs.Result == "" {
		obs.Result = raw.Outcome
	}

	if p := raw.Attacker; p != nil {
		obs.AttackerID = firstNonEmpty(p.ID.String(), obs.AttackerID)
		obs.AttackerName = firstNonEmpty(p.Name, obs.AttackerName)
		if p.Faction != nil {
			obs.AttackerFactionID = firstNonEmpty(p.Faction.ID.String(), obs.AttackerFactionID)
		}
	}
	if p := raw.Defender; p != nil {
		obs.DefenderID = firstNonEmpty(p.ID.String(), obs.DefenderID)
		obs.DefenderName = firstNonEmpty(p.Name, obs.DefenderName)
		if p.Faction != nil {
			obs.DefenderFactionID = firstNonEmpty(p.Faction.ID.String(), obs.DefenderFactionID)
		}
	}

	for _, ts := range []app.FlexInt{raw.Started, raw.TimestampStarted, raw.Ended, raw.TimestampEnded} {
		if ts > 0 {
			obs.Timestamp = int64(ts)
			break
		}
	}

	if obs.AttackerID == "" || obs.DefenderID == "" || obs.AttackerID == "0" || obs.DefenderID == "0" {
		return obs, false
	}
	return obs, true
}

// Record converts an observation into an API-sourced ledger record
func (o Observed) Record() AttackRecord {
	return AttackRecord{
		ID:           uuid.NewString(),
		UpstreamID:   o.UpstreamID,
		AttackerID:   o.AttackerID,
		AttackerName: o.AttackerName,
		DefenderID:   o.DefenderID,
		DefenderName: o.DefenderName,
		Points:       o.Points,
		Timestamp:    o.Timestamp,
		Result:       o.Result,
		Source:       SourceAPI,
	}
}

// FilterWarAttacks keeps attacks made at or after the war start against the
// opponent faction. Records without resolvable participant ids are skipped.
//
// Pure function: No I/O, returns new slice without modifying input
func FilterWarAttacks(attacks app.KeyedSet[app.RawAttack], warStart int64, opponentID string) []AttackRecord {
	var records []AttackRecord
	for i, raw := range attacks.Entries {
		obs, ok := Extract(raw, attacks.KeyAt(i))
		if !ok {
			continue
		}
		if obs.Timestamp < warStart {
			continue
		}
		if !sameFaction(obs.DefenderFactionID, opponentID) {
			continue
		}
		records = append(records, obs.Record())
	}
	return records
}

// OldestTimestamp returns the earliest attack time in a page
func OldestTimestamp(attacks app.KeyedSet[app.RawAttack], defaultTime int64) int64 {
	oldest := defaultTime
	for i, raw := range attacks.Entries {
		obs, _ := Extract(raw, attacks.KeyAt(i))
		if obs.Timestamp > 0 && obs.Timestamp < oldest {
			oldest = obs.Timestamp
		}
	}
	return oldest
}

func sameFaction(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na == nb
	}
	return a == b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
