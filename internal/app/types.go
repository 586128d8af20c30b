package app

import (
	"bytes"
	"encoding/json"
)

// Wire types for both Torn API schema versions. Nothing outside the torn
// client and the domain normalizers should depend on these directly.

// APIError is the in-body error object the Torn API returns with HTTP 200
type APIError struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// RawFaction represents one faction entry in a ranked war. In v1 the id is
// the map key; in v2 it is a field.
type RawFaction struct {
	ID    FlexID  `json:"id"`
	Name  string  `json:"name"`
	Score FlexInt `json:"score"`
	Chain FlexInt `json:"chain"`
}

// RawWarTimes is the nested "war" object used by v1 ranked wars
type RawWarTimes struct {
	Start  FlexInt `json:"start"`
	End    FlexInt `json:"end"`
	Target FlexInt `json:"target"`
	Winner FlexID  `json:"winner"`
}

// RawWar represents a ranked war entry from either schema version
type RawWar struct {
	WarID    FlexID               `json:"war_id"`
	ID       FlexID               `json:"id"`
	Start    FlexInt              `json:"start"`
	End      FlexInt              `json:"end"`
	Target   FlexInt              `json:"target"`
	Winner   FlexID               `json:"winner"`
	War      *RawWarTimes         `json:"war"`
	Factions KeyedSet[RawFaction] `json:"factions"`

	// Key is the enclosing map key when the war came from a keyed container
	Key string `json:"-"`
}

// Identifier returns the war id from whichever field carries it
func (w RawWar) Identifier() string {
	switch {
	case w.WarID != "":
		return w.WarID.String()
	case w.ID != "":
		return w.ID.String()
	default:
		return w.Key
	}
}

// Times returns start, end, target and winner, preferring the nested v1
// object over the flat v2 fields when present.
func (w RawWar) Times() (start, end, target int64, winner string) {
	start, end, target, winner = int64(w.Start), int64(w.End), int64(w.Target), w.Winner.String()
	if w.War != nil {
		start, end, target, winner = w.War.merge(start, end, target, winner)
	}
	if winner == "0" {
		winner = ""
	}
	return start, end, target, winner
}

// merge overlays the nested fields that are set onto the flat values
func (t RawWarTimes) merge(start, end, target int64, winner string) (int64, int64, int64, string) {
	if t.Start != 0 {
		start = int64(t.Start)
	}
	if t.End != 0 {
		end = int64(t.End)
	}
	if t.Target != 0 {
		target = int64(t.Target)
	}
	if t.Winner != "" {
		winner = t.Winner.String()
	}
	return start, end, target, winner
}

// RankedWarsEnvelope covers /faction?selections=rankedwars (v1),
// /v2/faction/rankedwars and /v2/faction/wars.
type RankedWarsEnvelope struct {
	RankedWars       WarSet `json:"rankedwars"`
	RankedWarsLegacy WarSet `json:"ranked_wars"`
	Wars             *struct {
		Ranked WarSet `json:"ranked"`
	} `json:"wars"`
	Error *APIError `json:"error"`
}

// AllWars flattens every war container in the envelope
func (e RankedWarsEnvelope) AllWars() []RawWar {
	var wars []RawWar
	wars = append(wars, e.RankedWars.Entries...)
	wars = append(wars, e.RankedWarsLegacy.Entries...)
	if e.Wars != nil {
		wars = append(wars, e.Wars.Ranked.Entries...)
	}
	return wars
}

// RawStatus is a member's current in-game state
type RawStatus struct {
	Description string  `json:"description"`
	Details     string  `json:"details"`
	State       string  `json:"state"`
	Until       FlexInt `json:"until"`
}

// RawLastAction is a member's last activity
type RawLastAction struct {
	Status    string  `json:"status"`
	Timestamp FlexInt `json:"timestamp"`
	Relative  string  `json:"relative"`
}

// RawMember represents a faction member from /faction?selections=basic
// (map keyed by id) or /v2/faction/{id}/members (list)
type RawMember struct {
	ID         FlexID        `json:"id"`
	Name       string        `json:"name"`
	Level      FlexInt       `json:"level"`
	Status     RawStatus     `json:"status"`
	LastAction RawLastAction `json:"last_action"`
}

// MembersEnvelope covers both member endpoints
type MembersEnvelope struct {
	ID      FlexID              `json:"ID"`
	Name    string              `json:"name"`
	Members KeyedSet[RawMember] `json:"members"`
	Error   *APIError           `json:"error"`
}

// RawFactionRef is the faction reference inside an attack participant
type RawFactionRef struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either the faction object or a bare faction id
func (f *RawFactionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = RawFactionRef{}
	if len(data) == 0 || data[0] != '{' {
		return f.ID.UnmarshalJSON(data)
	}

	type factionRef RawFactionRef
	var decoded factionRef
	if err := json.Unmarshal(data, &decoded); err == nil {
		*f = RawFactionRef(decoded)
	}
	return nil
}

// RawParticipant is the nested attacker/defender object in v2 attacks
type RawParticipant struct {
	ID      FlexID         `json:"id"`
	Name    string         `json:"name"`
	Level   FlexInt        `json:"level"`
	Faction *RawFactionRef `json:"faction"`
}

// UnmarshalJSON accepts either the participant object or a bare id
func (p *RawParticipant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = RawParticipant{}
	if len(data) == 0 || data[0] != '{' {
		return p.ID.UnmarshalJSON(data)
	}

	type participant RawParticipant
	var decoded participant
	if err := json.Unmarshal(data, &decoded); err == nil {
		*p = RawParticipant(decoded)
	}
	return nil
}

// RawAttack represents one attack in either the nested (v2) or flat (v1)
// shape, plus the score field variants seen across endpoints.
type RawAttack struct {
	ID   FlexID `json:"id"`
	Code string `json:"code"`

	// v2 nested shape
	Attacker *RawParticipant `json:"attacker"`
	Defender *RawParticipant `json:"defender"`
	Started  FlexInt         `json:"started"`
	Ended    FlexInt         `json:"ended"`

	// v1 flat shape
	AttackerID       FlexID  `json:"attacker_id"`
	AttackerName     string  `json:"attacker_name"`
	AttackerFaction  FlexID  `json:"attacker_faction"`
	DefenderID       FlexID  `json:"defender_id"`
	DefenderName     string  `json:"defender_name"`
	DefenderFaction  FlexID  `json:"defender_faction"`
	TimestampStarted FlexInt `json:"timestamp_started"`
	TimestampEnded   FlexInt `json:"timestamp_ended"`

	// outcome variants
	Result  string `json:"result"`
	Outcome string `json:"outcome"`

	// score variants
	RespectGain FlexFloat `json:"respect_gain"`
	Respect     FlexFloat `json:"respect"`
	ScoreGain   FlexFloat `json:"score_gain"`
	Points      FlexFloat `json:"points"`
}

// AttacksEnvelope covers /v2/faction/attacks (list) and
// /faction?selections=attacks (map keyed by attack id)
type AttacksEnvelope struct {
	Attacks KeyedSet[RawAttack] `json:"attacks"`
	Error   *APIError           `json:"error"`
}

// RawReportMember is one member's contribution in a ranked war report
type RawReportMember struct {
	ID      FlexID    `json:"id"`
	Name    string    `json:"name"`
	Level   FlexInt   `json:"level"`
	Attacks FlexInt   `json:"attacks"`
	Score   FlexFloat `json:"score"`
}

// RawReportFaction is one faction in a ranked war report
type RawReportFaction struct {
	ID      FlexID                    `json:"id"`
	Name    string                    `json:"name"`
	Score   FlexInt                   `json:"score"`
	Attacks FlexInt                   `json:"attacks"`
	Members KeyedSet[RawReportMember] `json:"members"`
}

// RankedWarReport is the official end-of-war report
type RankedWarReport struct {
	ID       FlexID                     `json:"id"`
	Start    FlexInt                    `json:"start"`
	End      FlexInt                    `json:"end"`
	Winner   FlexID                     `json:"winner"`
	War      *RawWarTimes               `json:"war"`
	Factions KeyedSet[RawReportFaction] `json:"factions"`
}

// Ended reports whether the report describes a finished war
func (r RankedWarReport) Ended() bool {
	if r.End != 0 {
		return true
	}
	return r.War != nil && r.War.End != 0
}

// ReportEnvelope covers /v2/faction/{id}/rankedwarreport and
// /torn/{id}?selections=rankedwarreport
type ReportEnvelope struct {
	Report *RankedWarReport `json:"rankedwarreport"`
	Error  *APIError        `json:"error"`
}
