package attack

import "strings"

// scoringOutcomes are the attack results that earn a point when the payload
// carries no explicit respect or score gain
var scoringOutcomes = []string{"Mugged", "Hospitalized", "Attacked", "Stalemate", "Assist", "Success"}

// IsScoringOutcome determines if an attack result counts as a successful hit.
// Failed, escaped and timed out attacks never score.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func IsScoringOutcome(result string) bool {
	result = strings.TrimSpace(result)
	for _, outcome := range scoringOutcomes {
		if strings.EqualFold(result, outcome) {
			return true
		}
	}
	return false
}
