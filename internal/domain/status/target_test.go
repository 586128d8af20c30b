package status

import (
	"encoding/json"
	"testing"
	"time"

	"torn_war_bot/internal/app"
)

var now = time.Unix(1700000000, 0)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{"Zero", 0, "0:00:00"},
		{"Negative", -time.Minute, "0:00:00"},
		{"Seconds", 45 * time.Second, "0:00:45"},
		{"HoursMinutesSeconds", 3*time.Hour + 7*time.Minute + 9*time.Second, "3:07:09"},
		{"OverADay", 26 * time.Hour, "26:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.input); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestOfflineDuration(t *testing.T) {
	if got := OfflineDuration(0, now); got != UnknownDuration {
		t.Errorf("expected %s for missing timestamp, got %s", UnknownDuration, got)
	}
	if got := OfflineDuration(now.Unix()-3725, now); got != "1:02:05" {
		t.Errorf("expected 1:02:05, got %s", got)
	}
}

func TestIsLeavingHospital(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		until    int64
		expected bool
	}{
		{"InsideWindow", StateHospital, now.Unix() + 30, true},
		{"AtWindowEdge", StateHospital, now.Unix() + 60, true},
		{"OutsideWindow", StateHospital, now.Unix() + 61, false},
		{"AlreadyReleased", StateHospital, now.Unix(), false},
		{"NoUntil", StateHospital, 0, false},
		{"NotInHospital", "Jail", now.Unix() + 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLeavingHospital(tt.state, tt.until, now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSurfacedTargets(t *testing.T) {
	payload := `{"members": {
		"1": {"name": "Okay", "level": 50, "status": {"state": "Okay"}, "last_action": {"timestamp": 1699999000}},
		"2": {"name": "Soon", "level": 60, "status": {"state": "Hospital", "until": 1700000045}},
		"3": {"name": "Later", "level": 70, "status": {"state": "Hospital", "until": 1700003600}},
		"4": {"name": "Away", "level": 80, "status": {"state": "Traveling"}}
	}}`

	var envelope app.MembersEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}

	targets := SurfacedTargets(envelope.Members, now)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d: %+v", len(targets), targets)
	}

	okay := targets[0]
	if okay.MemberID != "1" || okay.Availability != Attackable || okay.Offline != "0:16:40" {
		t.Errorf("unexpected attackable target: %+v", okay)
	}

	soon := targets[1]
	if soon.MemberID != "2" || soon.Availability != LeavingHospital || soon.Countdown != "0:00:45" {
		t.Errorf("unexpected hospital target: %+v", soon)
	}
	if soon.Offline != UnknownDuration {
		t.Errorf("expected unknown offline time, got %s", soon.Offline)
	}
}

func TestClassifyListShape(t *testing.T) {
	var envelope app.MembersEnvelope
	payload := `{"members": [{"id": 9, "name": "", "status": {"state": "Okay"}}]}`
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}

	target := Classify(envelope.Members.Entries[0], envelope.Members.KeyAt(0), now)
	if target.MemberID != "9" || target.Name != UnknownName || !target.Surfaced() {
		t.Errorf("unexpected target: %+v", target)
	}
}
