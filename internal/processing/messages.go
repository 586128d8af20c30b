package processing

import (
	"fmt"
	"strings"

	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
)

// maxListedTargets bounds the target names included in a direct message
const maxListedTargets = 5

func transitionMessage(t war.Transition) string {
	s := t.Snapshot
	switch t.Kind {
	case war.WarStarted:
		return fmt.Sprintf("Ranked war %s started: %s vs %s (target %d).",
			s.WarID, s.TrackedFaction.Name, s.OpponentFaction.Name, s.TargetScore)
	case war.WarEnded:
		result := "ended"
		switch war.DetermineOutcome(*s) {
		case war.OutcomeTracked:
			result = "won"
		case war.OutcomeOpponent:
			result = "lost"
		}
		return fmt.Sprintf("Ranked war %s %s: %s %d - %d %s.",
			s.WarID, result, s.TrackedFaction.Name, s.TrackedFaction.Score, s.OpponentFaction.Score, s.OpponentFaction.Name)
	default:
		return ""
	}
}

func chainMessage(s war.WarSnapshot, milestone int64) string {
	return fmt.Sprintf("%s chain reached %d (now %d).", s.TrackedFaction.Name, milestone, s.TrackedFaction.Chain)
}

func targetsMessage(s war.WarSnapshot, targets []status.Target) string {
	names := make([]string, 0, maxListedTargets)
	for i, t := range targets {
		if i == maxListedTargets {
			break
		}
		names = append(names, fmt.Sprintf("%s [%s]", t.Name, t.MemberID))
	}

	msg := fmt.Sprintf("%d new target(s) in %s: %s", len(targets), s.OpponentFaction.Name, strings.Join(names, ", "))
	if extra := len(targets) - len(names); extra > 0 {
		msg += fmt.Sprintf(" and %d more", extra)
	}
	return msg
}
