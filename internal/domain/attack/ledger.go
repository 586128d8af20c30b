package attack

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WarLedger is the attack list of one war. The stamp is set when the entry
// is created and never changes.
type WarLedger struct {
	WarStamp
	CreatedAt int64          `json:"created_at"`
	Attacks   []AttackRecord `json:"attacks"`
}

// Ledger maps war ids to their attack lists. Records are append-only except
// for explicit deletion. It is not safe for concurrent use.
type Ledger struct {
	wars   map[string]*WarLedger
	dedupe DedupePolicy
	now    func() time.Time
}

// NewLedger creates a ledger from persisted entries
func NewLedger(wars map[string]WarLedger, dedupe DedupePolicy) *Ledger {
	l := &Ledger{
		wars:   make(map[string]*WarLedger, len(wars)),
		dedupe: dedupe,
		now:    time.Now,
	}
	for id, entry := range wars {
		e := entry
		e.Attacks = append([]AttackRecord(nil), entry.Attacks...)
		if e.WarID == "" {
			e.WarID = id
		}
		l.wars[id] = &e
	}
	return l
}

// Record appends a manually reported attack to the war identified by stamp.
// A nil stamp means no war is held.
func (l *Ledger) Record(stamp *WarStamp, record AttackRecord) (AttackRecord, error) {
	if stamp == nil || stamp.WarID == "" {
		return AttackRecord{}, ErrNoActiveWar
	}
	if err := record.Validate(); err != nil {
		return AttackRecord{}, err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Source == "" {
		record.Source = SourceManual
	}
	if record.Timestamp == 0 {
		record.Timestamp = l.now().Unix()
	}

	entry := l.entry(*stamp)
	entry.Attacks = append(entry.Attacks, record)

	log.Debug().
		Str("war_id", stamp.WarID).
		Str("attacker_id", record.AttackerID).
		Str("defender_id", record.DefenderID).
		Float64("points", record.Points).
		Str("source", string(record.Source)).
		Msg("Recorded attack")

	return record, nil
}

// Import appends API-sourced records, skipping invalid ones and any whose
// upstream id is already in the war's list. It returns how many were added.
func (l *Ledger) Import(stamp *WarStamp, records []AttackRecord) (int, error) {
	if stamp == nil || stamp.WarID == "" {
		return 0, ErrNoActiveWar
	}

	entry := l.entry(*stamp)
	seen := make(map[string]bool, len(entry.Attacks))
	for _, existing := range entry.Attacks {
		if existing.UpstreamID != "" {
			seen[existing.UpstreamID] = true
		}
	}

	added := 0
	for _, r := range records {
		if r.Validate() != nil {
			continue
		}
		if r.UpstreamID != "" && seen[r.UpstreamID] {
			continue
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.Source = SourceAPI
		entry.Attacks = append(entry.Attacks, r)
		if r.UpstreamID != "" {
			seen[r.UpstreamID] = true
		}
		added++
	}

	return added, nil
}

// Delete removes the attack at a 1-based position in the war's list.
// Positions shift after a deletion.
func (l *Ledger) Delete(warID string, index int) (AttackRecord, error) {
	entry, ok := l.wars[warID]
	if !ok {
		return AttackRecord{}, fmt.Errorf("%w: no attacks recorded for war %s", ErrNotFound, warID)
	}
	if index < 1 || index > len(entry.Attacks) {
		return AttackRecord{}, fmt.Errorf("%w: index %d out of range 1-%d", ErrNotFound, index, len(entry.Attacks))
	}

	removed := entry.Attacks[index-1]
	entry.Attacks = append(entry.Attacks[:index-1], entry.Attacks[index:]...)
	return removed, nil
}

// Attacks returns the war's raw list in recorded order
func (l *Ledger) Attacks(warID string) ([]AttackRecord, error) {
	entry, ok := l.wars[warID]
	if !ok {
		return nil, fmt.Errorf("%w: no attacks recorded for war %s", ErrNotFound, warID)
	}
	return append([]AttackRecord(nil), entry.Attacks...), nil
}

// War returns a copy of one war's entry
func (l *Ledger) War(warID string) (WarLedger, bool) {
	entry, ok := l.wars[warID]
	if !ok {
		return WarLedger{}, false
	}
	out := *entry
	out.Attacks = append([]AttackRecord(nil), entry.Attacks...)
	return out, true
}

// Records returns the records used for aggregation with the dedupe policy
// applied. An empty war id selects every war.
func (l *Ledger) Records(warID string) []AttackRecord {
	if warID != "" {
		entry, ok := l.wars[warID]
		if !ok {
			return nil
		}
		return l.dedupe.Apply(entry.Attacks)
	}

	var all []AttackRecord
	for _, id := range l.warIDs() {
		all = append(all, l.dedupe.Apply(l.wars[id].Attacks)...)
	}
	return all
}

// StatsFor aggregates a member's attacks in one war, or across all wars when
// warID is empty
func (l *Ledger) StatsFor(memberID, warID string) MemberStats {
	return CalculateMemberStats(l.Records(warID), memberID)
}

// LatestImported returns the newest API-sourced attack time for a war
func (l *Ledger) LatestImported(warID string) int64 {
	entry, ok := l.wars[warID]
	if !ok {
		return 0
	}
	var latest int64
	for _, r := range entry.Attacks {
		if r.Source == SourceAPI && r.Timestamp > latest {
			latest = r.Timestamp
		}
	}
	return latest
}

// Snapshot returns a deep copy for persistence
func (l *Ledger) Snapshot() map[string]WarLedger {
	out := make(map[string]WarLedger, len(l.wars))
	for id := range l.wars {
		entry, _ := l.War(id)
		out[id] = entry
	}
	return out
}

func (l *Ledger) entry(stamp WarStamp) *WarLedger {
	if entry, ok := l.wars[stamp.WarID]; ok {
		return entry
	}
	entry := &WarLedger{WarStamp: stamp, CreatedAt: l.now().Unix()}
	l.wars[stamp.WarID] = entry
	return entry
}

// warIDs orders wars by start time, then id
func (l *Ledger) warIDs() []string {
	ids := make([]string, 0, len(l.wars))
	for id := range l.wars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.wars[ids[i]], l.wars[ids[j]]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return ids[i] < ids[j]
	})
	return ids
}
