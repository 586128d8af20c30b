package attack

// MemberStats aggregates one member's recorded attacks
type MemberStats struct {
	MemberID      string    `json:"member_id"`
	TotalAttacks  int       `json:"total_attacks"`
	TotalPoints   float64   `json:"total_points"`
	AveragePoints float64   `json:"average_points"`
	Last5Points   []float64 `json:"last_5_points"`
}

// recentWindow is how many of the latest attacks Last5Points keeps
const recentWindow = 5

// CalculateMemberStats aggregates the records made by one attacker. A member
// with no records gets zeroed stats.
//
// Pure function: No I/O operations, fully testable with direct inputs.
func CalculateMemberStats(records []AttackRecord, memberID string) MemberStats {
	stats := MemberStats{MemberID: memberID, Last5Points: []float64{}}

	var points []float64
	for _, r := range SortChronologically(records) {
		if r.AttackerID != memberID {
			continue
		}
		stats.TotalAttacks++
		stats.TotalPoints += r.Points
		points = append(points, r.Points)
	}

	if stats.TotalAttacks > 0 {
		stats.AveragePoints = stats.TotalPoints / float64(stats.TotalAttacks)
	}
	if len(points) > recentWindow {
		points = points[len(points)-recentWindow:]
	}
	stats.Last5Points = append(stats.Last5Points, points...)

	return stats
}
