package leaderboard

import (
	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/war"
)

// WarSummary is everything known about a war once it has ended. It is the
// payload handed to the report exporters.
type WarSummary struct {
	Final        war.WarSnapshot       `json:"final"`
	Entry        war.WarHistoryEntry   `json:"entry"`
	Source       Source                `json:"source"`
	Contributors []Contributor         `json:"contributors"`
	Attacks      []attack.AttackRecord `json:"attacks"`
}

// Summarize builds a war summary. Official contributors are used when
// available, otherwise the ledger records are aggregated.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func Summarize(entry war.WarHistoryEntry, final war.WarSnapshot, official []Contributor, haveOfficial bool, records []attack.AttackRecord) WarSummary {
	s := WarSummary{
		Final:   final,
		Entry:   entry,
		Attacks: append([]attack.AttackRecord(nil), records...),
	}
	if haveOfficial {
		s.Source = SourceOfficial
		s.Contributors = official
	} else {
		s.Source = SourceLedger
		s.Contributors = FallbackContributors(records)
	}
	return s
}

// TotalPoints sums the contributors' points
func (s WarSummary) TotalPoints() float64 {
	var total float64
	for _, c := range s.Contributors {
		total += c.Points
	}
	return total
}
