// Package discord is the chat surface of the bot. Slash commands map one to
// one onto processing.Service operations; the bot also posts announcements
// and direct messages for the service.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"torn_war_bot/internal/domain/status"
	"torn_war_bot/internal/domain/war"
	"torn_war_bot/internal/processing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// CommandTimeout bounds the work done for one interaction
const CommandTimeout = 30 * time.Second

// Bot represents the Discord bot instance
type Bot struct {
	session   *discordgo.Session
	service   *processing.Service
	channelID string
	ttl       time.Duration
	messages  *MessageTracker
	commands  []*discordgo.ApplicationCommand

	ctx context.Context
	now func() time.Time
}

// New creates a bot posting announcements to channelID. Target messages
// older than ttl are removed by CleanupStaleMessages.
func New(token, channelID string, ttl time.Duration, service *processing.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{
		session:   session,
		service:   service,
		channelID: channelID,
		ttl:       ttl,
		messages:  NewMessageTracker(),
		ctx:       context.Background(),
		now:       time.Now,
	}

	session.AddHandler(b.handleInteraction)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Int("guilds", len(r.Guilds)).Msg("Bot is ready")
	})

	return b, nil
}

// Start opens the Discord connection and registers the slash commands.
// ctx bounds the command handlers.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Info().Str("user", b.BotName()).Msg("Connected to Discord")

	return b.registerCommands()
}

// Stop removes the bot's target messages and closes the connection
func (b *Bot) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.deleteMessages(ctx, b.messages.TakeAll())
	return b.session.Close()
}

// BotName is the connected bot user, empty before Start
func (b *Bot) BotName() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.String()
}

func (b *Bot) registerCommands() error {
	definitions := commandDefinitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", definitions)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.commands = registered
	log.Info().Int("count", len(registered)).Msg("Slash commands registered")
	return nil
}

// SendDirect sends a direct message to a user
func (b *Bot) SendDirect(ctx context.Context, userID, message string) error {
	channel, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	if _, err := b.session.ChannelMessageSend(channel.ID, Truncate(message), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

// AnnounceTargets posts one message per target. Attackable targets get a
// claim button.
func (b *Bot) AnnounceTargets(ctx context.Context, warID string, targets []status.Target) error {
	if b.channelID == "" {
		return nil
	}

	var errs []error
	for _, t := range targets {
		msg := &discordgo.MessageSend{Content: FormatTarget(t)}
		if t.Availability == status.Attackable {
			msg.Components = []discordgo.MessageComponent{claimRow(t.MemberID, false)}
		}

		sent, err := b.session.ChannelMessageSendComplex(b.channelID, msg, discordgo.WithContext(ctx))
		if err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", t.MemberID, err))
			continue
		}
		b.messages.Track(TrackedMessage{
			ChannelID: sent.ChannelID,
			MessageID: sent.ID,
			MemberID:  t.MemberID,
			PostedAt:  b.now(),
		})
	}

	log.Debug().
		Str("war_id", warID).
		Int("targets", len(targets)).
		Int("failed", len(errs)).
		Msg("Announced targets")

	return errors.Join(errs...)
}

// AnnounceTransition posts a war start or end. A finished war's target
// messages are removed since its claims are gone.
func (b *Bot) AnnounceTransition(ctx context.Context, t war.Transition) error {
	if t.Kind == war.WarEnded {
		b.deleteMessages(ctx, b.messages.TakeAll())
	}
	if b.channelID == "" {
		return nil
	}
	content := FormatTransition(t)
	if content == "" {
		return nil
	}
	_, err := b.session.ChannelMessageSend(b.channelID, content, discordgo.WithContext(ctx))
	return err
}

// CleanupStaleMessages deletes target messages older than the TTL
func (b *Bot) CleanupStaleMessages(ctx context.Context) error {
	expired := b.messages.TakeExpired(b.now(), b.ttl)
	if len(expired) == 0 {
		return nil
	}
	deleted := b.deleteMessages(ctx, expired)
	log.Info().
		Int("expired", len(expired)).
		Int("deleted", deleted).
		Msg("Cleaned up stale target messages")
	return nil
}

func (b *Bot) deleteMessages(ctx context.Context, messages []TrackedMessage) int {
	deleted := 0
	for _, m := range messages {
		err := b.session.ChannelMessageDelete(m.ChannelID, m.MessageID, discordgo.WithContext(ctx))
		if err != nil && !isNotFound(err) {
			log.Warn().Err(err).Str("message_id", m.MessageID).Msg("Failed to delete message")
			continue
		}
		deleted++
	}
	return deleted
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func claimRow(memberID string, claimed bool) discordgo.ActionsRow {
	button := discordgo.Button{
		Label:    "⚔️ Claim",
		Style:    discordgo.DangerButton,
		CustomID: ClaimButtonID(memberID),
	}
	if claimed {
		button.Label = "Claimed"
		button.Style = discordgo.SecondaryButton
		button.Disabled = true
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}}
}

// handleInteraction processes slash commands and claim buttons. A panic in
// a handler is reported to the user and never takes the process down.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Interaction handler panicked")
			b.respondError(s, i)
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	userID := interactionUserID(i)
	log.Debug().Str("command", data.Name).Str("user_id", userID).Msg("Received command")

	var flags discordgo.MessageFlags
	if ephemeralCommands[data.Name] {
		flags = discordgo.MessageFlagsEphemeral
	}

	// Respond immediately to avoid the interaction timing out
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}); err != nil {
		log.Warn().Err(err).Str("command", data.Name).Msg("Failed to acknowledge command")
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, CommandTimeout)
	defer cancel()

	content := b.execute(ctx, data.Name, optionsOf(data.Options), userID)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Warn().Err(err).Str("command", data.Name).Msg("Failed to send command response")
	}
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	memberID, ok := ParseClaimButtonID(data.CustomID)
	if !ok {
		log.Warn().Str("custom_id", data.CustomID).Msg("Unknown component")
		return
	}
	userID := interactionUserID(i)

	if _, _, err := b.service.Claim(memberID, userID); err != nil {
		b.respondEphemeral(s, i, errorText(err))
		return
	}

	original := ""
	if i.Message != nil {
		original = i.Message.Content
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    Truncate(FormatClaimed(original, userID)),
			Components: []discordgo.MessageComponent{claimRow(memberID, true)},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("member_id", memberID).Msg("Failed to update claimed target message")
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to respond to interaction")
	}
}

// respondError reports an unexpected failure. The interaction may already
// have been acknowledged, so the deferred response is edited as a fallback.
func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	content := "Something went wrong handling that request."
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err == nil {
		return
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Debug().Err(err).Msg("Failed to report handler failure")
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
