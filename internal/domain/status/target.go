package status

import (
	"time"

	"torn_war_bot/internal/app"
)

const (
	// UnknownDuration is shown when no last action time is available
	UnknownDuration = "Unknown"
	// UnknownName is used for members the API returns without a name
	UnknownName = "Unknown"
)

// HospitalExitWindow is how close to release a hospitalized member must be
// to be surfaced as a target
const HospitalExitWindow = 60 * time.Second

// Member states reported by the Torn API
const (
	StateOkay     = "Okay"
	StateHospital = "Hospital"
)

// Availability classifies whether a member can be attacked now
type Availability string

const (
	Attackable      Availability = "attackable"
	LeavingHospital Availability = "leaving_hospital"
	Unavailable     Availability = "unavailable"
)

// Target is an opponent member classified for the target scan
type Target struct {
	MemberID     string
	Name         string
	Level        int
	State        string
	Description  string
	Until        int64
	LastAction   int64
	Offline      string
	Countdown    string
	Availability Availability
}

// Surfaced reports whether the target should be shown to attackers
func (t Target) Surfaced() bool {
	return t.Availability != Unavailable
}

// IsAttackable reports whether a member's state allows attacking right now
func IsAttackable(state string) bool {
	return state == StateOkay
}

// IsLeavingHospital reports whether a hospitalized member is released
// within HospitalExitWindow
func IsLeavingHospital(state string, until int64, currentTime time.Time) bool {
	if state != StateHospital || until <= 0 {
		return false
	}
	remaining := time.Unix(until, 0).Sub(currentTime)
	return remaining > 0 && remaining <= HospitalExitWindow
}

// Classify converts a raw member into a target. key is the enclosing map
// key for v1 member maps.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func Classify(member app.RawMember, key string, currentTime time.Time) Target {
	id := member.ID.String()
	if id == "" {
		id = key
	}

	name := member.Name
	if name == "" {
		name = UnknownName
	}

	t := Target{
		MemberID:     id,
		Name:         name,
		Level:        int(member.Level),
		State:        member.Status.State,
		Description:  member.Status.Description,
		Until:        int64(member.Status.Until),
		LastAction:   int64(member.LastAction.Timestamp),
		Availability: Unavailable,
	}
	t.Offline = OfflineDuration(t.LastAction, currentTime)

	switch {
	case IsAttackable(t.State):
		t.Availability = Attackable
	case IsLeavingHospital(t.State, t.Until, currentTime):
		t.Availability = LeavingHospital
		t.Countdown = CalculateCountdown(time.Unix(t.Until, 0), currentTime)
	}

	return t
}

// SurfacedTargets classifies every member and keeps the attackable ones in
// payload order
func SurfacedTargets(members app.KeyedSet[app.RawMember], currentTime time.Time) []Target {
	var targets []Target
	for i, m := range members.Entries {
		t := Classify(m, members.KeyAt(i), currentTime)
		if t.Surfaced() {
			targets = append(targets, t)
		}
	}
	return targets
}
