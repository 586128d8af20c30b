package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/claim"
	"torn_war_bot/internal/notify"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

var adminPermission int64 = discordgo.PermissionAdministrator

// commandDefinitions are the slash commands the bot registers
func commandDefinitions() []*discordgo.ApplicationCommand {
	warIDOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "war_id",
		Description: "War id, defaults to the current war",
	}
	memberOption := func(description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "member_id",
			Description: description,
			Required:    true,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "targets",
			Description: "List unclaimed attackable opponents",
		},
		{
			Name:        "claim",
			Description: "Claim an opponent to attack",
			Options:     []*discordgo.ApplicationCommandOption{memberOption("Torn id of the opponent")},
		},
		{
			Name:        "unclaim",
			Description: "Release a claimed opponent",
			Options:     []*discordgo.ApplicationCommandOption{memberOption("Torn id of the opponent")},
		},
		{
			Name:        "claims",
			Description: "List claimed opponents",
		},
		{
			Name:        "record",
			Description: "Record an attack in the current war",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "attacker_id",
					Description: "Torn id of the attacker",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "defender_id",
					Description: "Torn id of the defender",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "points",
					Description: "Respect gained, scored from the result when omitted",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "result",
					Description: "Attack result, e.g. Attacked or Hospitalized",
				},
			},
		},
		{
			Name:                     "delete",
			Description:              "Delete a recorded attack by its position",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "index",
					Description: "Position shown by /attacks",
					Required:    true,
				},
				warIDOption,
			},
		},
		{
			Name:        "attacks",
			Description: "List recorded attacks",
			Options:     []*discordgo.ApplicationCommandOption{warIDOption},
		},
		{
			Name:        "stats",
			Description: "Show a member's attack statistics",
			Options:     []*discordgo.ApplicationCommandOption{memberOption("Torn id of the member"), warIDOption},
		},
		{
			Name:        "import",
			Description: "Import the current war's attacks from the Torn API",
		},
		{
			Name:        "leaderboard",
			Description: "Rank contributors of a war",
			Options: []*discordgo.ApplicationCommandOption{
				warIDOption,
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number",
				},
			},
		},
		{
			Name:        "payout",
			Description: "Split war proceeds by attack count",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "total_sale",
					Description: "Total proceeds to split",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "shareholders",
					Description: "Number of shareholders",
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "pct",
					Description: "Percent per shareholder",
				},
				warIDOption,
			},
		},
		{
			Name:        "war",
			Description: "Show the current war or look one up",
			Options:     []*discordgo.ApplicationCommandOption{warIDOption},
		},
		{
			Name:        "history",
			Description: "List finished wars",
		},
		{
			Name:        "notify",
			Description: "Turn direct message notifications on or off",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Notification type",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "targets", Value: string(notify.EventTargets)},
						{Name: "war", Value: string(notify.EventWar)},
						{Name: "chain", Value: string(notify.EventChain)},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "On or off",
					Required:    true,
				},
			},
		},
	}
}

// ephemeralCommands answer only the invoking user
var ephemeralCommands = map[string]bool{
	"notify": true,
	"stats":  true,
}

// options indexes a command's options by name
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	o := make(options, len(opts))
	for _, opt := range opts {
		o[opt.Name] = opt
	}
	return o
}

func (o options) string(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o options) int(name string, def int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return def
}

func (o options) float(name string, def float64) float64 {
	if opt, ok := o[name]; ok {
		return opt.FloatValue()
	}
	return def
}

func (o options) bool(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// execute runs one slash command against the service and returns the reply
func (b *Bot) execute(ctx context.Context, name string, opts options, userID string) string {
	switch name {
	case "targets":
		result, err := b.service.Targets(ctx)
		if err != nil {
			return errorText(err)
		}
		return FormatTargets(result)

	case "claim":
		memberID := opts.string("member_id")
		_, previous, err := b.service.Claim(memberID, userID)
		if err != nil {
			return errorText(err)
		}
		if previous != "" {
			return fmt.Sprintf("You claimed `%s`, taking it over from <@%s>.", memberID, previous)
		}
		return fmt.Sprintf("You claimed `%s`.", memberID)

	case "unclaim":
		memberID := opts.string("member_id")
		if _, err := b.service.Unclaim(memberID); err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Released `%s`.", memberID)

	case "claims":
		return FormatClaims(b.service.Claims())

	case "record":
		saved, err := b.service.RecordAttack(ctx, attack.AttackRecord{
			AttackerID: opts.string("attacker_id"),
			DefenderID: opts.string("defender_id"),
			Points:     opts.float("points", 0),
			Result:     opts.string("result"),
			RecordedBy: userID,
		})
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Recorded attack by `%s` on `%s` for %.2f points.", saved.AttackerID, saved.DefenderID, saved.Points)

	case "delete":
		removed, err := b.service.DeleteAttack(ctx, opts.string("war_id"), opts.int("index", 0))
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Deleted attack by `%s` on `%s` (%.2f points).", removed.AttackerID, removed.DefenderID, removed.Points)

	case "attacks":
		warID, records, err := b.service.Attacks(opts.string("war_id"))
		if err != nil {
			return errorText(err)
		}
		return FormatAttacks(warID, records)

	case "stats":
		return FormatStats(b.service.Stats(opts.string("member_id"), opts.string("war_id")))

	case "import":
		added, err := b.service.ImportAttacks(ctx)
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("Imported %d new attack(s).", added)

	case "leaderboard":
		view, err := b.service.Leaderboard(ctx, opts.string("war_id"), opts.int("page", 1))
		if err != nil {
			return errorText(err)
		}
		return FormatLeaderboard(view)

	case "payout":
		view, err := b.service.Payout(ctx, opts.string("war_id"), opts.float("total_sale", 0), opts.int("shareholders", 0), opts.float("pct", 0))
		if err != nil {
			return errorText(err)
		}
		return FormatPayout(view)

	case "war":
		if warID := opts.string("war_id"); warID != "" {
			snapshot, err := b.service.LookupWar(ctx, warID)
			if err != nil {
				return errorText(err)
			}
			return FormatWar(snapshot)
		}
		return FormatWar(b.service.CurrentWar())

	case "history":
		return FormatHistory(b.service.History())

	case "notify":
		event, err := notify.ParseEventType(opts.string("type"))
		if err != nil {
			return errorText(err)
		}
		prefs, err := b.service.SetNotification(ctx, userID, event, opts.bool("enabled"))
		if err != nil {
			return errorText(err)
		}
		return FormatPreferences(prefs)

	default:
		log.Warn().Str("command", name).Msg("Unknown command")
		return "Unknown command."
	}
}

// errorText maps expected failures to a reply. Anything else is logged and
// reported generically.
func errorText(err error) string {
	switch {
	case errors.Is(err, attack.ErrNoActiveWar):
		return "No ranked war is being tracked."
	case errors.Is(err, attack.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, attack.ErrInvalidRecord):
		return "Invalid attack: " + err.Error()
	case errors.Is(err, claim.ErrNotClaimed):
		return "That target is not claimed."
	case errors.Is(err, claim.ErrAlreadyClaimed):
		return "That target is already claimed."
	default:
		log.Warn().Err(err).Msg("Command failed")
		return "Something went wrong: " + err.Error()
	}
}
