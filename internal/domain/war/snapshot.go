package war

import "fmt"

// UnknownName is used when the upstream payload omits a faction name
const UnknownName = "Unknown"

// Status is the derived lifecycle state of a war snapshot
type Status int

const (
	// StatusOngoing means the war has no end time yet
	StatusOngoing Status = iota
	// StatusEnded means the war has a non-zero end time
	StatusEnded
)

// String returns the string representation of a war status
func (s Status) String() string {
	switch s {
	case StatusOngoing:
		return "ONGOING"
	case StatusEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name for the persisted snapshot
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ONGOING":
		*s = StatusOngoing
	case "ENDED":
		*s = StatusEnded
	default:
		return fmt.Errorf("unknown war status %q", string(text))
	}
	return nil
}

// FactionSide is one side of a ranked war
type FactionSide struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Chain int64  `json:"chain"`
}

// WarSnapshot is the canonical view of one ranked war at one poll
type WarSnapshot struct {
	WarID           string      `json:"war_id"`
	TrackedFaction  FactionSide `json:"tracked_faction"`
	OpponentFaction FactionSide `json:"opponent_faction"`
	TargetScore     int64       `json:"target_score"`
	StartTime       int64       `json:"start_time"`
	EndTime         int64       `json:"end_time"`
	WinnerID        string      `json:"winner_id,omitempty"`
	Status          Status      `json:"status"`
}

// Ongoing reports whether the war has not ended
func (s WarSnapshot) Ongoing() bool {
	return s.Status == StatusOngoing
}

// Ended reports whether the war has ended
func (s WarSnapshot) Ended() bool {
	return s.Status == StatusEnded
}

// Lead returns the tracked faction's score minus the opponent's
func (s WarSnapshot) Lead() int64 {
	return s.TrackedFaction.Score - s.OpponentFaction.Score
}

// deriveStatus applies the end-time rule: a present, non-zero end means ended
func deriveStatus(endTime int64) Status {
	if endTime != 0 {
		return StatusEnded
	}
	return StatusOngoing
}
