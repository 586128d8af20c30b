package attack

// TimeRangeResult holds the calculated time range and update mode for an
// attack import
type TimeRangeResult struct {
	FromTime   int64
	ToTime     int64
	UpdateMode string
}

// UpdateMode constants
const (
	UpdateModeFull        = "full"
	UpdateModeIncremental = "incremental"
)

// IncrementalBuffer is subtracted from the newest imported attack to cover
// attacks the API reports late
const IncrementalBuffer = 3600

// CalculateTimeRange determines the import window for a war. latestImported
// is the newest API-sourced attack already in the ledger (0 when none);
// warEnd is 0 for an ongoing war.
// Pure function: Takes currentTime as parameter to enable deterministic testing
func CalculateTimeRange(warStart, warEnd, latestImported, currentTime int64) TimeRangeResult {
	result := TimeRangeResult{
		FromTime:   warStart,
		ToTime:     warEnd,
		UpdateMode: UpdateModeFull,
	}

	if latestImported > 0 {
		result.UpdateMode = UpdateModeIncremental
		result.FromTime = latestImported - IncrementalBuffer
		if result.FromTime < warStart {
			result.FromTime = warStart
		}
	}

	if result.ToTime == 0 {
		result.ToTime = currentTime
	}

	return result
}
