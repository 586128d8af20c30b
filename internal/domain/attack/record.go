package attack

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveWar is returned when recording or importing without a held war
	ErrNoActiveWar = errors.New("no active war")
	// ErrNotFound is returned for an unknown war id or an out of range index
	ErrNotFound = errors.New("attack not found")
	// ErrInvalidRecord is returned for records missing ids or with negative points
	ErrInvalidRecord = errors.New("invalid attack record")
)

// Source records where an attack came from
type Source string

const (
	SourceManual Source = "MANUAL"
	SourceAPI    Source = "API"
)

// AttackRecord is one observed or reported attack attributed to a tracked
// faction member. Member ids are opaque strings.
type AttackRecord struct {
	ID           string  `json:"id"`
	UpstreamID   string  `json:"upstream_id,omitempty"`
	AttackerID   string  `json:"attacker_id"`
	AttackerName string  `json:"attacker_name,omitempty"`
	DefenderID   string  `json:"defender_id"`
	DefenderName string  `json:"defender_name,omitempty"`
	Points       float64 `json:"points"`
	Timestamp    int64   `json:"timestamp"`
	Result       string  `json:"result,omitempty"`
	Source       Source  `json:"source"`
	RecordedBy   string  `json:"recorded_by,omitempty"`
}

// Validate checks the record invariants
func (r AttackRecord) Validate() error {
	if r.AttackerID == "" || r.DefenderID == "" {
		return fmt.Errorf("%w: attacker and defender ids are required", ErrInvalidRecord)
	}
	if r.Points < 0 {
		return fmt.Errorf("%w: points must not be negative, got %g", ErrInvalidRecord, r.Points)
	}
	return nil
}

// WarStamp identifies the war a ledger entry belongs to. It is fixed when the
// entry is created.
type WarStamp struct {
	WarID     string `json:"war_id"`
	FactionID string `json:"faction_id"`
	StartTime int64  `json:"start_time"`
}
