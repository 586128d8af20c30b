package attack

import "time"

// DedupePolicy decides whether a MANUAL report and an API record describe
// the same attack. A zero window disables deduplication and both sources are
// counted.
type DedupePolicy struct {
	Window time.Duration
}

// Enabled reports whether the policy removes anything
func (p DedupePolicy) Enabled() bool {
	return p.Window > 0
}

// Apply drops MANUAL records that match an API record with the same attacker
// and defender within the window. API records are authoritative.
//
// Pure function: No I/O, returns new slice without modifying input
func (p DedupePolicy) Apply(records []AttackRecord) []AttackRecord {
	if !p.Enabled() {
		out := make([]AttackRecord, len(records))
		copy(out, records)
		return out
	}

	window := int64(p.Window / time.Second)
	var apiRecords []AttackRecord
	for _, r := range records {
		if r.Source == SourceAPI {
			apiRecords = append(apiRecords, r)
		}
	}

	out := make([]AttackRecord, 0, len(records))
	for _, r := range records {
		if r.Source != SourceAPI && matchesAny(r, apiRecords, window) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesAny(manual AttackRecord, apiRecords []AttackRecord, window int64) bool {
	for _, api := range apiRecords {
		if api.AttackerID != manual.AttackerID || api.DefenderID != manual.DefenderID {
			continue
		}
		delta := api.Timestamp - manual.Timestamp
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}
