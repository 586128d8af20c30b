package attack

import "sort"

// SortChronologically returns a new slice with records sorted by timestamp
// (oldest first). Records with equal timestamps keep their relative order.
// Pure function: Does not modify input slice, returns new sorted slice
func SortChronologically(records []AttackRecord) []AttackRecord {
	sorted := make([]AttackRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	return sorted
}
