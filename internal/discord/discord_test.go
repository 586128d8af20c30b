package discord

import (
	"context"
	"strings"
	"testing"
	"time"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/claim"
	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/processing"
	"torn_war_bot/internal/processing/mocks"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ongoingWar = `{"rankedwars": {"555": {
	"factions": {
		"1001": {"name": "Home", "score": 120, "chain": 12},
		"2002": {"name": "Away", "score": 80, "chain": 3}
	},
	"war": {"start": 1700000000, "end": 0, "target": 6000, "winner": 0}}}}`

func newTestBot(t *testing.T, payloads ...string) *Bot {
	t.Helper()

	client := mocks.NewMockTornClient()
	for _, p := range payloads {
		client.RankedWarsPayloads = append(client.RankedWarsPayloads, []byte(p))
	}

	state := processing.NewAppState(processing.StateOptions{TrackedFactionID: 1001, ClaimOverwrite: false}, processing.Persisted{})
	svc := processing.NewService(state, 1001, processing.Dependencies{Torn: client})

	if len(payloads) > 0 {
		_, err := svc.PollWar(context.Background())
		require.NoError(t, err)
	}

	return &Bot{service: svc, messages: NewMessageTracker(), ctx: context.Background(), now: time.Now}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func numberOpt(name string, value float64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionNumber, Value: value}
}

func boolOpt(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func run(b *Bot, name, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) string {
	return b.execute(context.Background(), name, optionsOf(opts), userID)
}

func TestExecute_ClaimLifecycle(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, "You claimed `42`.", run(b, "claim", "u1", stringOpt("member_id", "42")))
	assert.Equal(t, "That target is already claimed.", run(b, "claim", "u2", stringOpt("member_id", "42")))
	assert.Contains(t, run(b, "claims", "u1"), "`42` by <@u1>")
	assert.Equal(t, "Released `42`.", run(b, "unclaim", "u1", stringOpt("member_id", "42")))
	assert.Equal(t, "That target is not claimed.", run(b, "unclaim", "u1", stringOpt("member_id", "42")))
	assert.Equal(t, "No targets are claimed.", run(b, "claims", "u1"))
}

func TestExecute_NoWar(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, "No ranked war is being tracked.", run(b, "attacks", "u1"))
	assert.Equal(t, "No ranked war is being tracked.", run(b, "import", "u1"))
	assert.Equal(t, "No ranked war is being tracked.", run(b, "leaderboard", "u1"))
	assert.Equal(t, "No ranked war is being tracked.",
		run(b, "record", "u1", stringOpt("attacker_id", "11"), stringOpt("defender_id", "21"), numberOpt("points", 2)))
	assert.Equal(t, "No ranked war in progress.", run(b, "war", "u1"))
	assert.Equal(t, "No ranked war in progress.", run(b, "targets", "u1"))
	assert.Equal(t, "No wars recorded yet.", run(b, "history", "u1"))
}

func TestExecute_RecordAndDelete(t *testing.T) {
	b := newTestBot(t, ongoingWar)

	reply := run(b, "record", "u1", stringOpt("attacker_id", "11"), stringOpt("defender_id", "21"), numberOpt("points", 2.5))
	assert.Equal(t, "Recorded attack by `11` on `21` for 2.50 points.", reply)

	attacks := run(b, "attacks", "u1")
	assert.Contains(t, attacks, "**Attacks for war 555**")
	assert.Contains(t, attacks, "1. 11 → 21: 2.50 pts [manual]")

	assert.Contains(t, run(b, "stats", "u1", stringOpt("member_id", "11")), "Attacks: 1")
	assert.Contains(t, run(b, "leaderboard", "u1"), "1. Unknown: 1 attacks, 2.50 pts")

	assert.Contains(t, run(b, "delete", "u1", intOpt("index", 2)), "Not found")
	assert.Equal(t, "Deleted attack by `11` on `21` (2.50 points).", run(b, "delete", "u1", intOpt("index", 1)))
}

func TestExecute_WarAndPayout(t *testing.T) {
	b := newTestBot(t, ongoingWar)

	reply := run(b, "war", "u1")
	assert.Contains(t, reply, "**War 555** (ongoing)")
	assert.Contains(t, reply, "Home: 120 (chain 12)")

	run(b, "record", "u1", stringOpt("attacker_id", "11"), stringOpt("defender_id", "21"), numberOpt("points", 3))
	payout := run(b, "payout", "u1", numberOpt("total_sale", 1000000), intOpt("shareholders", 2), numberOpt("pct", 10))
	assert.Contains(t, payout, "Total sale: $1,000,000")
	assert.Contains(t, payout, "$200,000")

	assert.Contains(t, run(b, "payout", "u1", numberOpt("total_sale", -1)), "must not be negative")
}

func TestExecute_Notify(t *testing.T) {
	b := newTestBot(t)

	assert.Equal(t, "Notifications: targets off, war on, chain off.",
		run(b, "notify", "u1", stringOpt("type", "war"), boolOpt("enabled", true)))
	assert.Contains(t, run(b, "notify", "u1", stringOpt("type", "bogus"), boolOpt("enabled", true)), "unknown notification type")
}

func TestExecute_Unknown(t *testing.T) {
	assert.Equal(t, "Unknown command.", run(newTestBot(t), "bogus", "u1"))
}

func TestCommandDefinitions(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range commandDefinitions() {
		assert.False(t, names[cmd.Name], "duplicate command %s", cmd.Name)
		names[cmd.Name] = true
	}
	for _, want := range []string{"targets", "claim", "unclaim", "claims", "record", "delete", "attacks", "stats", "import", "leaderboard", "payout", "war", "history", "notify"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestClaimButtonID(t *testing.T) {
	id, ok := ParseClaimButtonID(ClaimButtonID("42"))
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = ParseClaimButtonID("claim:")
	assert.False(t, ok)
	_, ok = ParseClaimButtonID("other:42")
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("é", MaxMessageLength)
	cut := Truncate(long)
	assert.LessOrEqual(t, len(cut), MaxMessageLength)
	assert.True(t, strings.HasSuffix(cut, "\n…"))
	assert.True(t, strings.HasPrefix(cut, "éé"))
}

func TestFormatTarget(t *testing.T) {
	attackable := status.Target{MemberID: "7", Name: "bob", Level: 40, Offline: "1:02:03", Availability: status.Attackable}
	assert.Equal(t, "**bob** [7] (Lv 40) is **attackable**!\nOffline time: `1:02:03`", FormatTarget(attackable))

	leaving := status.Target{MemberID: "8", Name: "eve", Level: 12, Countdown: "0:45", Availability: status.LeavingHospital}
	assert.Equal(t, "**eve** [8] (Lv 12) leaves hospital in `0:45`.", FormatTarget(leaving))

	assert.Equal(t, "x\n**Claimed by:** <@u1>", FormatClaimed("x", "u1"))
}

func TestFormatTransition(t *testing.T) {
	s := &war.WarSnapshot{
		WarID:           "555",
		TrackedFaction:  war.FactionSide{ID: "1001", Name: "Home", Score: 6100},
		OpponentFaction: war.FactionSide{ID: "2002", Name: "Away", Score: 100},
		TargetScore:     6000,
		EndTime:         1700090000,
		WinnerID:        "1001",
		Status:          war.StatusEnded,
	}
	assert.Equal(t, "**Ranked War Ended** (victory): Home 6100 - 100 Away.",
		FormatTransition(war.Transition{Kind: war.WarEnded, Snapshot: s}))
	assert.Contains(t, FormatTransition(war.Transition{Kind: war.WarStarted, Snapshot: s}), "**New Ranked War Detected!**")
	assert.Empty(t, FormatTransition(war.Transition{Kind: war.NoChange}))
}

func TestFormatHistory_NewestFirst(t *testing.T) {
	out := FormatHistory([]war.WarHistoryEntry{
		{WarID: "1", OpponentName: "A", Outcome: war.OutcomeTracked},
		{WarID: "2", OpponentName: "B", Outcome: war.OutcomeOpponent},
	})
	assert.Less(t, strings.Index(out, "`2`"), strings.Index(out, "`1`"))
	assert.Contains(t, out, "(defeat)")
}

func TestFormatLeaderboard_Ranks(t *testing.T) {
	contributors := make([]leaderboard.Contributor, 12)
	for i := range contributors {
		contributors[i] = leaderboard.Contributor{Name: "m", Attacks: 1, Points: float64(12 - i)}
	}
	view := processing.LeaderboardView{
		WarID:  "555",
		Source: leaderboard.SourceLedger,
		Page:   leaderboard.Paginate(contributors, processing.LeaderboardPageSize, 2),
	}
	out := FormatLeaderboard(view)
	assert.Contains(t, out, "(ledger, page 2/2)")
	assert.Contains(t, out, "11. m: 1 attacks, 2.00 pts")
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "No attacks recorded for `9`.", FormatStats(attack.MemberStats{MemberID: "9"}))
}

func TestFormatClaims(t *testing.T) {
	out := FormatClaims([]claim.Claim{{MemberID: "1", UserID: "u"}})
	assert.Equal(t, "**Claimed targets**\n`1` by <@u>", out)
}

func TestFormatThousands(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for in, want := range tests {
		assert.Equal(t, want, formatThousands(in))
	}
}

func TestMessageTracker(t *testing.T) {
	tracker := NewMessageTracker()
	base := time.Unix(1700000000, 0)

	tracker.Track(TrackedMessage{ChannelID: "c", MessageID: "m1", PostedAt: base})
	tracker.Track(TrackedMessage{ChannelID: "c", MessageID: "m2", PostedAt: base.Add(10 * time.Minute)})
	tracker.Track(TrackedMessage{ChannelID: "c", MessageID: "m3", PostedAt: base.Add(-time.Minute)})
	tracker.Forget("m2")
	tracker.Track(TrackedMessage{ChannelID: "c", MessageID: "m4", PostedAt: base.Add(20 * time.Minute)})

	expired := tracker.TakeExpired(base.Add(16*time.Minute), 15*time.Minute)
	require.Len(t, expired, 2)
	assert.Equal(t, "m3", expired[0].MessageID)
	assert.Equal(t, "m1", expired[1].MessageID)
	assert.Equal(t, 1, tracker.Len())

	assert.Len(t, tracker.TakeAll(), 1)
	assert.Equal(t, 0, tracker.Len())
}

func TestInteractionUserID(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "g"}}}}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "d"}}}

	assert.Equal(t, "g", interactionUserID(guild))
	assert.Equal(t, "d", interactionUserID(dm))
}
