package war

import (
	"github.com/rs/zerolog/log"
)

// TransitionKind identifies what a poll observed
type TransitionKind int

const (
	// NoChange means the held war is unchanged in identity and status
	NoChange TransitionKind = iota
	// WarStarted means a new ongoing war was observed
	WarStarted
	// WarEnded means the held ongoing war has ended or disappeared
	WarEnded
	// TransitionError means the poll could not be normalized; state is unchanged
	TransitionError
)

// String returns the string representation of a transition kind
func (k TransitionKind) String() string {
	switch k {
	case NoChange:
		return "NoChange"
	case WarStarted:
		return "WarStarted"
	case WarEnded:
		return "WarEnded"
	case TransitionError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Transition is one event produced by a poll. For WarStarted the snapshot is
// the new war; for WarEnded it is the final snapshot of the ended war.
type Transition struct {
	Kind     TransitionKind
	Snapshot *WarSnapshot
	Err      error
}

// WarID returns the id of the war the transition refers to, if any
func (t Transition) WarID() string {
	if t.Snapshot == nil {
		return ""
	}
	return t.Snapshot.WarID
}

// HistoryRecorder receives the final snapshot of every ended war
type HistoryRecorder interface {
	RecordWarEnded(final WarSnapshot)
}

// ClaimClearer is signalled once per ended war
type ClaimClearer interface {
	ClearAll()
}

// Tracker holds the current war snapshot and detects transitions between
// polls. It is not safe for concurrent use; callers serialize access.
type Tracker struct {
	normalizer    *Normalizer
	history       HistoryRecorder
	claims        ClaimClearer
	current       *WarSnapshot
	previousWarID string
}

// NewTracker creates a tracker with no held war
func NewTracker(normalizer *Normalizer, history HistoryRecorder, claims ClaimClearer) *Tracker {
	return &Tracker{
		normalizer: normalizer,
		history:    history,
		claims:     claims,
	}
}

// Restore seeds the tracker with a persisted snapshot without emitting
// transitions, so a restart during a war still reports its end exactly once.
func (t *Tracker) Restore(snapshot *WarSnapshot) {
	if snapshot == nil {
		t.current = nil
		return
	}
	held := *snapshot
	t.current = &held
}

// Current returns a copy of the held snapshot, or nil
func (t *Tracker) Current() *WarSnapshot {
	if t.current == nil {
		return nil
	}
	held := *t.current
	return &held
}

// PreviousWarID returns the id of the war held before the current one
func (t *Tracker) PreviousWarID() string {
	return t.previousWarID
}

// Poll normalizes a raw ranked wars payload and applies it. A normalization
// failure leaves the held state untouched.
func (t *Tracker) Poll(payload []byte) []Transition {
	next, err := t.normalizer.Normalize(payload)
	if err != nil {
		log.Warn().
			Err(err).
			Str("held_war_id", t.heldWarID()).
			Msg("War payload rejected, keeping previous state")
		return []Transition{{Kind: TransitionError, Err: err}}
	}
	return t.Apply(next)
}

// Apply compares a normalized snapshot (nil when no war is listed) against
// the held state and returns the resulting transitions in order. A direct
// switch from one war to another yields WarEnded followed by WarStarted.
func (t *Tracker) Apply(next *WarSnapshot) []Transition {
	prev := t.current
	var transitions []Transition

	switch {
	case prev != nil && next != nil && prev.WarID == next.WarID:
		if prev.Ended() {
			// already reported; the war id stays latched as ended
			return []Transition{{Kind: NoChange, Snapshot: t.Current()}}
		}
		if next.Ended() {
			transitions = append(transitions, t.end(*next))
		}

	default:
		if prev != nil && prev.Ongoing() {
			transitions = append(transitions, t.end(*prev))
		}
		if next != nil && next.Ongoing() {
			started := *next
			transitions = append(transitions, Transition{Kind: WarStarted, Snapshot: &started})
			log.Info().
				Str("war_id", started.WarID).
				Str("opponent", started.OpponentFaction.Name).
				Str("opponent_id", started.OpponentFaction.ID).
				Int64("target_score", started.TargetScore).
				Msg("War started")
		}
	}

	t.hold(next)

	if len(transitions) == 0 {
		return []Transition{{Kind: NoChange, Snapshot: t.Current()}}
	}
	return transitions
}

func (t *Tracker) end(final WarSnapshot) Transition {
	log.Info().
		Str("war_id", final.WarID).
		Int64("tracked_score", final.TrackedFaction.Score).
		Int64("opponent_score", final.OpponentFaction.Score).
		Msg("War ended")

	if t.history != nil {
		t.history.RecordWarEnded(final)
	}
	if t.claims != nil {
		t.claims.ClearAll()
	}
	return Transition{Kind: WarEnded, Snapshot: &final}
}

func (t *Tracker) hold(next *WarSnapshot) {
	if t.current != nil {
		t.previousWarID = t.current.WarID
	}
	if next == nil {
		t.current = nil
		return
	}
	held := *next
	t.current = &held
}

func (t *Tracker) heldWarID() string {
	if t.current == nil {
		return ""
	}
	return t.current.WarID
}
