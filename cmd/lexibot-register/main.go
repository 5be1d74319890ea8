// Command lexibot-register pushes the embedded slash command manifest to
// every configured guild. Run it once after deploying a manifest change; the
// bot itself never registers commands at startup.
package main

import (
	"log/slog"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/common/environment"
	"github.com/luminolworks/lexibot/internal/commands"
	"github.com/luminolworks/lexibot/internal/observability"
)

func main() {
	observability.Setup(
		environment.StringOr("LEXIBOT_LOG_LEVEL", "info"),
		environment.StringOr("LEXIBOT_LOG_FORMAT", "text"),
	)

	token, err := environment.RequiredString("LEXIBOT_DISCORD_TOKEN")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appID, err := environment.RequiredString("LEXIBOT_APP_ID")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	guilds := environment.StringSliceOr("LEXIBOT_GUILD_IDS", nil)
	if len(guilds) == 0 {
		slog.Error("LEXIBOT_GUILD_IDS must list at least one guild")
		os.Exit(1)
	}

	manifest, err := commands.LoadManifest()
	if err != nil {
		slog.Error("failed to load command manifest", "error", err)
		os.Exit(1)
	}
	payload := manifest.ToApplicationCommands()

	// Registration is plain REST; no gateway connection needed.
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	for _, guild := range guilds {
		if _, err := session.ApplicationCommandBulkOverwrite(appID, guild, payload); err != nil {
			slog.Error("failed to register commands", "guild", guild, "error", err)
			os.Exit(1)
		}
		slog.Info("registered commands", "guild", guild, "commands", len(payload))
	}
}
