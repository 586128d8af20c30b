package status

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as H:MM:SS. Negative durations render
// as 0:00:00.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00:00"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// CalculateCountdown calculates countdown string from a future timestamp
// Returns empty string if timestamp is zero, "0:00:00" if time has passed
func CalculateCountdown(statusUntil time.Time, currentTime time.Time) string {
	if statusUntil.IsZero() {
		return ""
	}
	return FormatDuration(statusUntil.Sub(currentTime))
}

// OfflineDuration renders time since a member's last action, or
// UnknownDuration when the API gave no timestamp
func OfflineDuration(lastAction int64, currentTime time.Time) string {
	if lastAction <= 0 {
		return UnknownDuration
	}
	return FormatDuration(currentTime.Sub(time.Unix(lastAction, 0)))
}

// FormatTimestamp formats a time.Time to the standard format used in exports
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
