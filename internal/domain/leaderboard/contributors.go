package leaderboard

import (
	"sort"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/domain/attack"
)

// UnknownName is used when a member has no name in the source data
const UnknownName = "Unknown"

// Contributor is a tracked faction member's aggregated war performance
type Contributor struct {
	MemberID string  `json:"member_id"`
	Name     string  `json:"name"`
	Attacks  int     `json:"attacks"`
	Points   float64 `json:"points"`
	Level    int     `json:"level"`
}

// Source records where a contributor list came from
type Source string

const (
	SourceOfficial Source = "official"
	SourceLedger   Source = "ledger"
)

// OfficialContributors extracts the tracked faction's members from an end of
// war report. The second value is false while the war is still running or
// when the report does not include the tracked faction, which callers must
// treat as "not ready" rather than "no contributions".
//
// Pure function: No I/O operations, fully testable with direct inputs.
func OfficialContributors(report *app.RankedWarReport, trackedFactionID int) ([]Contributor, bool) {
	if report == nil || !report.Ended() {
		return nil, false
	}

	for i, faction := range report.Factions.Entries {
		id := faction.ID
		if id == "" {
			id = app.FlexID(report.Factions.KeyAt(i))
		}
		if n, ok := id.Int(); !ok || n != trackedFactionID {
			continue
		}

		members := faction.Members
		contributors := make([]Contributor, 0, members.Len())
		for j, m := range members.Entries {
			memberID := m.ID.String()
			if memberID == "" {
				memberID = members.KeyAt(j)
			}
			contributors = append(contributors, Contributor{
				MemberID: memberID,
				Name:     nameOrUnknown(m.Name),
				Attacks:  int(m.Attacks),
				Points:   float64(m.Score),
				Level:    int(m.Level),
			})
		}
		SortByPoints(contributors)
		return contributors, true
	}

	return nil, false
}

// FallbackContributors aggregates ledger records per attacker, in first seen
// order before sorting
//
// Pure function: No I/O operations, fully testable with direct inputs.
func FallbackContributors(records []attack.AttackRecord) []Contributor {
	index := make(map[string]int)
	var contributors []Contributor

	for _, r := range records {
		i, ok := index[r.AttackerID]
		if !ok {
			i = len(contributors)
			index[r.AttackerID] = i
			contributors = append(contributors, Contributor{MemberID: r.AttackerID, Name: UnknownName})
		}
		c := &contributors[i]
		c.Attacks++
		c.Points += r.Points
		if r.AttackerName != "" {
			c.Name = r.AttackerName
		}
	}

	SortByPoints(contributors)
	return contributors
}

// SortByPoints orders contributors by points, highest first. Ties keep
// their input order.
func SortByPoints(contributors []Contributor) {
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].Points > contributors[j].Points
	})
}

func nameOrUnknown(name string) string {
	if name == "" {
		return UnknownName
	}
	return name
}
