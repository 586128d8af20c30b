package war

import (
	"strconv"
	"time"
)

// Outcome records which side won an ended war
type Outcome string

const (
	OutcomeTracked      Outcome = "tracked"
	OutcomeOpponent     Outcome = "opponent"
	OutcomeUndetermined Outcome = "undetermined"
)

// WarHistoryEntry is the persisted summary of one ended war
type WarHistoryEntry struct {
	WarID         string  `json:"war_id"`
	TrackedID     string  `json:"tracked_id"`
	TrackedName   string  `json:"tracked_name"`
	OpponentID    string  `json:"opponent_id"`
	OpponentName  string  `json:"opponent_name"`
	TrackedScore  int64   `json:"tracked_score"`
	OpponentScore int64   `json:"opponent_score"`
	TargetScore   int64   `json:"target_score"`
	StartTime     int64   `json:"start_time"`
	EndTime       int64   `json:"end_time"`
	WinnerID      string  `json:"winner_id,omitempty"`
	Outcome       Outcome `json:"outcome"`
	RecordedAt    int64   `json:"recorded_at"`
}

// Won reports whether the tracked faction won
func (e WarHistoryEntry) Won() bool {
	return e.Outcome == OutcomeTracked
}

// DetermineOutcome resolves the winner by the upstream winner id when it
// names one of the two sides, otherwise by score. Equal scores are
// undetermined.
func DetermineOutcome(s WarSnapshot) Outcome {
	if s.WinnerID != "" {
		switch {
		case sameID(s.WinnerID, s.TrackedFaction.ID):
			return OutcomeTracked
		case sameID(s.WinnerID, s.OpponentFaction.ID):
			return OutcomeOpponent
		}
	}

	switch lead := s.Lead(); {
	case lead > 0:
		return OutcomeTracked
	case lead < 0:
		return OutcomeOpponent
	default:
		return OutcomeUndetermined
	}
}

// sameID compares ids numerically when both parse, textually otherwise
func sameID(a, b string) bool {
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

// NewHistoryEntry builds the history summary for a final snapshot
func NewHistoryEntry(final WarSnapshot, recordedAt time.Time) WarHistoryEntry {
	return WarHistoryEntry{
		WarID:         final.WarID,
		TrackedID:     final.TrackedFaction.ID,
		TrackedName:   final.TrackedFaction.Name,
		OpponentID:    final.OpponentFaction.ID,
		OpponentName:  final.OpponentFaction.Name,
		TrackedScore:  final.TrackedFaction.Score,
		OpponentScore: final.OpponentFaction.Score,
		TargetScore:   final.TargetScore,
		StartTime:     final.StartTime,
		EndTime:       final.EndTime,
		WinnerID:      final.WinnerID,
		Outcome:       DetermineOutcome(final),
		RecordedAt:    recordedAt.Unix(),
	}
}

// History is the in-memory list of ended wars, oldest first. It implements
// HistoryRecorder for the tracker.
type History struct {
	entries []WarHistoryEntry
	now     func() time.Time
}

// NewHistory creates a history seeded with previously persisted entries
func NewHistory(entries []WarHistoryEntry) *History {
	h := &History{now: time.Now}
	h.entries = append(h.entries, entries...)
	return h
}

// RecordWarEnded appends a summary of the final snapshot. A war already in
// the history is replaced rather than duplicated.
func (h *History) RecordWarEnded(final WarSnapshot) {
	entry := NewHistoryEntry(final, h.now())
	for i := range h.entries {
		if h.entries[i].WarID == entry.WarID {
			h.entries[i] = entry
			return
		}
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy of all entries, oldest first
func (h *History) Entries() []WarHistoryEntry {
	out := make([]WarHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Find returns the entry for a war id
func (h *History) Find(warID string) (WarHistoryEntry, bool) {
	for _, e := range h.entries {
		if e.WarID == warID {
			return e, true
		}
	}
	return WarHistoryEntry{}, false
}

// Latest returns the most recently recorded entry
func (h *History) Latest() (WarHistoryEntry, bool) {
	if len(h.entries) == 0 {
		return WarHistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of recorded wars
func (h *History) Len() int {
	return len(h.entries)
}
