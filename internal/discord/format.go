package discord

import (
	"fmt"
	"math"
	"strings"
	"time"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/claim"
	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/notify"
	"torn_war_bot/internal/processing"
)

// MaxMessageLength is Discord's limit for message content
const MaxMessageLength = 2000

const claimPrefix = "claim:"

// ClaimButtonID builds the custom id of a target's claim button
func ClaimButtonID(memberID string) string {
	return claimPrefix + memberID
}

// ParseClaimButtonID extracts the member id from a claim button custom id
func ParseClaimButtonID(customID string) (string, bool) {
	memberID, ok := strings.CutPrefix(customID, claimPrefix)
	if !ok || memberID == "" {
		return "", false
	}
	return memberID, true
}

// Truncate cuts content to Discord's message limit
func Truncate(content string) string {
	if len(content) <= MaxMessageLength {
		return content
	}
	const suffix = "\n…"
	cut := MaxMessageLength - len(suffix)
	// back off to a rune boundary
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut--
	}
	return content[:cut] + suffix
}

// FormatTarget renders one target announcement
func FormatTarget(t status.Target) string {
	switch t.Availability {
	case status.LeavingHospital:
		return fmt.Sprintf("**%s** [%s] (Lv %d) leaves hospital in `%s`.", t.Name, t.MemberID, t.Level, t.Countdown)
	default:
		return fmt.Sprintf("**%s** [%s] (Lv %d) is **attackable**!\nOffline time: `%s`", t.Name, t.MemberID, t.Level, t.Offline)
	}
}

// FormatClaimed is the target announcement after someone claimed it
func FormatClaimed(original, userID string) string {
	return fmt.Sprintf("%s\n**Claimed by:** <@%s>", original, userID)
}

// FormatTargets renders a target scan result
func FormatTargets(r processing.ScanResult) string {
	if r.WarID == "" {
		return "No ranked war in progress."
	}
	if len(r.Targets) == 0 {
		return "No unclaimed targets right now."
	}
	lines := []string{fmt.Sprintf("**%d unclaimed target(s)**", len(r.Targets))}
	for _, t := range r.Targets {
		lines = append(lines, "• "+strings.ReplaceAll(FormatTarget(t), "\n", " "))
	}
	return Truncate(strings.Join(lines, "\n"))
}

// FormatTransition renders a war start or end announcement
func FormatTransition(t war.Transition) string {
	s := t.Snapshot
	if s == nil {
		return ""
	}
	switch t.Kind {
	case war.WarStarted:
		return fmt.Sprintf("**New Ranked War Detected!** %s vs %s (war `%s`, target %d).",
			s.TrackedFaction.Name, s.OpponentFaction.Name, s.WarID, s.TargetScore)
	case war.WarEnded:
		return fmt.Sprintf("**Ranked War Ended** (%s): %s %d - %d %s.",
			outcomeText(war.DetermineOutcome(*s)), s.TrackedFaction.Name, s.TrackedFaction.Score, s.OpponentFaction.Score, s.OpponentFaction.Name)
	default:
		return ""
	}
}

func outcomeText(o war.Outcome) string {
	switch o {
	case war.OutcomeTracked:
		return "victory"
	case war.OutcomeOpponent:
		return "defeat"
	default:
		return "undetermined"
	}
}

// FormatWar renders a war snapshot
func FormatWar(s *war.WarSnapshot) string {
	if s == nil {
		return "No ranked war in progress."
	}
	state := "ongoing"
	if s.Ended() {
		state = "ended, " + outcomeText(war.DetermineOutcome(*s))
	}
	lines := []string{
		fmt.Sprintf("**War %s** (%s)", s.WarID, state),
		fmt.Sprintf("%s: %d (chain %d)", s.TrackedFaction.Name, s.TrackedFaction.Score, s.TrackedFaction.Chain),
		fmt.Sprintf("%s: %d (chain %d)", s.OpponentFaction.Name, s.OpponentFaction.Score, s.OpponentFaction.Chain),
		fmt.Sprintf("Lead: %d / %d", s.Lead(), s.TargetScore),
	}
	if s.StartTime > 0 {
		lines = append(lines, "Started: "+status.FormatTimestamp(time.Unix(s.StartTime, 0)))
	}
	if s.EndTime > 0 {
		lines = append(lines, "Ended: "+status.FormatTimestamp(time.Unix(s.EndTime, 0)))
	}
	return strings.Join(lines, "\n")
}

// FormatHistory renders ended wars, newest first
func FormatHistory(entries []war.WarHistoryEntry) string {
	if len(entries) == 0 {
		return "No wars recorded yet."
	}
	lines := []string{"**War history**"}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		lines = append(lines, fmt.Sprintf("`%s` vs %s: %d - %d (%s)",
			e.WarID, e.OpponentName, e.TrackedScore, e.OpponentScore, outcomeText(e.Outcome)))
	}
	return Truncate(strings.Join(lines, "\n"))
}

// FormatClaims renders the current claims
func FormatClaims(claims []claim.Claim) string {
	if len(claims) == 0 {
		return "No targets are claimed."
	}
	lines := []string{"**Claimed targets**"}
	for _, c := range claims {
		lines = append(lines, fmt.Sprintf("`%s` by <@%s>", c.MemberID, c.UserID))
	}
	return Truncate(strings.Join(lines, "\n"))
}

// FormatAttacks renders a war's ledger with 1-based positions for deletion
func FormatAttacks(warID string, records []attack.AttackRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No attacks recorded for war `%s`.", warID)
	}
	lines := []string{fmt.Sprintf("**Attacks for war %s**", warID)}
	for i, r := range records {
		line := fmt.Sprintf("%d. %s → %s: %.2f pts", i+1, nameOrID(r.AttackerName, r.AttackerID), nameOrID(r.DefenderName, r.DefenderID), r.Points)
		if r.Result != "" {
			line += " (" + r.Result + ")"
		}
		if r.Source == attack.SourceManual {
			line += " [manual]"
		}
		lines = append(lines, line)
	}
	return Truncate(strings.Join(lines, "\n"))
}

func nameOrID(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s [%s]", name, id)
}

// FormatStats renders a member's statistics
func FormatStats(s attack.MemberStats) string {
	if s.TotalAttacks == 0 {
		return fmt.Sprintf("No attacks recorded for `%s`.", s.MemberID)
	}
	last := make([]string, 0, len(s.Last5Points))
	for _, p := range s.Last5Points {
		last = append(last, fmt.Sprintf("%.2f", p))
	}
	return fmt.Sprintf("**Stats for %s**\nAttacks: %d\nTotal points: %.2f\nAverage: %.2f\nLast 5: %s",
		s.MemberID, s.TotalAttacks, s.TotalPoints, s.AveragePoints, strings.Join(last, ", "))
}

// FormatLeaderboard renders one leaderboard page
func FormatLeaderboard(v processing.LeaderboardView) string {
	lines := []string{fmt.Sprintf("**Leaderboard for war %s** (%s, page %d/%d)", v.WarID, v.Source, v.Page.Page, v.Page.TotalPages)}
	if len(v.Page.Items) == 0 {
		lines = append(lines, "No contributions yet.")
	}
	offset := (v.Page.Page - 1) * processing.LeaderboardPageSize
	for i, c := range v.Page.Items {
		lines = append(lines, fmt.Sprintf("%d. %s: %d attacks, %.2f pts", offset+i+1, c.Name, c.Attacks, c.Points))
	}
	return Truncate(strings.Join(lines, "\n"))
}

// FormatPayout renders a payout plan
func FormatPayout(v processing.PayoutView) string {
	p := v.Plan
	lines := []string{
		fmt.Sprintf("**Payout for war %s** (%s)", v.WarID, v.Source),
		fmt.Sprintf("Total sale: %s", money(p.TotalSale)),
		fmt.Sprintf("Shareholders: %d × %.2f%% = %s", p.ShareholderCount, p.ShareholderPct, money(p.ShareholderCut)),
		fmt.Sprintf("After cut: %s over %d attacks (%s per hit)", money(p.AmountAfterCut), p.TotalAttacks, money(p.PayPerHit)),
	}
	for _, payout := range p.Payouts {
		lines = append(lines, fmt.Sprintf("%s: %d hits = %s", payout.Name, payout.Attacks, money(payout.Amount)))
	}
	return Truncate(strings.Join(lines, "\n"))
}

func money(v float64) string {
	return "$" + formatThousands(int64(math.Round(v)))
}

func formatThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatPreferences renders a user's notification settings
func FormatPreferences(p notify.UserPreferences) string {
	return fmt.Sprintf("Notifications: targets %s, war %s, chain %s.",
		onOff(p.NotifyTargets), onOff(p.NotifyWar), onOff(p.NotifyChain))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

