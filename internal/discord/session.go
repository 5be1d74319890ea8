// Package discord wraps the gateway session and the small slice of the REST
// API the bot needs: channel provisioning, message replies, reactions, and
// interaction responses.
package discord

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/internal/channels"
)

// categoryName is the per-guild category that holds every user's private
// training channels.
const categoryName = "私人訓練頻道"

// Config holds the credentials for the gateway session. Guild filtering
// happens in the message router, not here.
type Config struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string
}

// Session wraps a discordgo session.
type Session struct {
	s   *discordgo.Session
	cfg Config
	log *slog.Logger
}

// New creates a gateway session with the intents the bot needs. The session
// is not connected until Start is called.
func New(cfg Config) (*Session, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord: token is required")
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	return &Session{
		s:   s,
		cfg: cfg,
		log: slog.With("component", "discord"),
	}, nil
}

// Start opens the gateway connection.
func (d *Session) Start() error {
	if err := d.s.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	d.log.Info("gateway connected", "user", d.s.State.User.Username)
	return nil
}

// Stop closes the gateway connection.
func (d *Session) Stop() error {
	return d.s.Close()
}

// BotUserID returns the bot's own user id. Only valid after Start.
func (d *Session) BotUserID() string {
	if d.s.State == nil || d.s.State.User == nil {
		return ""
	}
	return d.s.State.User.ID
}

// OnMessage registers a handler for guild message creation events.
func (d *Session) OnMessage(h func(s *discordgo.Session, m *discordgo.MessageCreate)) {
	d.s.AddHandler(h)
}

// OnInteraction registers a handler for interaction (slash command) events.
func (d *Session) OnInteraction(h func(s *discordgo.Session, i *discordgo.InteractionCreate)) {
	d.s.AddHandler(h)
}

// Reply sends a plain text message to a channel.
func (d *Session) Reply(channelID, content string) error {
	if _, err := d.s.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// React adds an emoji reaction to a message.
func (d *Session) React(channelID, messageID, emoji string) error {
	if err := d.s.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		return fmt.Errorf("discord: add reaction: %w", err)
	}
	return nil
}

// DeferEphemeral acknowledges an interaction with a deferred ephemeral
// response so the real reply can follow after slow work.
func (d *Session) DeferEphemeral(i *discordgo.InteractionCreate) error {
	err := d.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("discord: defer interaction: %w", err)
	}
	return nil
}

// EditReply replaces the deferred interaction response with the final text.
func (d *Session) EditReply(i *discordgo.InteractionCreate, content string) error {
	_, err := d.s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		return fmt.Errorf("discord: edit interaction response: %w", err)
	}
	return nil
}

// ChannelExists probes whether a channel is still live in the guild.
// A REST error other than 404 is returned so a transient outage does not
// look like a deleted channel.
func (d *Session) ChannelExists(guildID, channelID string) (bool, error) {
	ch, err := d.s.Channel(channelID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("discord: probe channel %s: %w", channelID, err)
	}
	return ch.GuildID == guildID, nil
}

// CreatePair provisions a user's vocabulary and reading channels under the
// shared training category, visible only to the owner and the bot.
func (d *Session) CreatePair(guildID, ownerID, username string) (channels.Pair, error) {
	catID, err := d.ensureCategory(guildID)
	if err != nil {
		return channels.Pair{}, err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares the guild id.
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
		},
		{
			ID:    d.BotUserID(),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
		},
	}

	vocab, err := d.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("🔖 詞彙累積-%s", username),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             catID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return channels.Pair{}, fmt.Errorf("discord: create vocabulary channel: %w", err)
	}

	reading, err := d.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("📖 閱讀筆記-%s", username),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             catID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return channels.Pair{}, fmt.Errorf("discord: create reading channel: %w", err)
	}

	return channels.Pair{Vocab: vocab.ID, Reading: reading.ID}, nil
}

// ensureCategory finds or creates the shared training category.
func (d *Session) ensureCategory(guildID string) (string, error) {
	existing, err := d.s.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("discord: list guild channels: %w", err)
	}
	for _, ch := range existing {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == categoryName {
			return ch.ID, nil
		}
	}

	cat, err := d.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: categoryName,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", fmt.Errorf("discord: create category: %w", err)
	}
	d.log.Info("created training category", "guild", guildID, "category", cat.ID)
	return cat.ID, nil
}

// RegisterCommands overwrites the guild's slash command set.
func (d *Session) RegisterCommands(guildID string, cmds []*discordgo.ApplicationCommand) error {
	appID := d.s.State.User.ID
	if _, err := d.s.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	return nil
}
