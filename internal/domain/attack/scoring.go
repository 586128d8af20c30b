package attack

import (
	"encoding/json"

	"torn_war_bot/internal/app"
)

// SuccessPoints is awarded for a scoring outcome without an explicit gain
const SuccessPoints = 1.0

// PointsFor applies the scoring ladder to a raw attack payload:
//  1. an explicit non-zero respect or score gain is used verbatim
//  2. otherwise a scoring outcome earns SuccessPoints
//  3. otherwise 0
//
// Pure function: No I/O operations, fully testable with direct inputs.
func PointsFor(raw app.RawAttack) float64 {
	for _, gain := range []app.FlexFloat{raw.RespectGain, raw.Respect, raw.ScoreGain, raw.Points} {
		if gain > 0 {
			return float64(gain)
		}
	}

	if IsScoringOutcome(raw.Result) || IsScoringOutcome(raw.Outcome) {
		return SuccessPoints
	}

	return 0
}

// PointsForJSON scores an undecoded attack payload. Payloads that are not a
// JSON object score 0.
func PointsForJSON(payload []byte) float64 {
	var raw app.RawAttack
	if err := json.Unmarshal(payload, &raw); err != nil {
		return 0
	}
	return PointsFor(raw)
}
