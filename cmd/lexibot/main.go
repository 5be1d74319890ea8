// Command lexibot runs the Discord learning bot: private channel
// provisioning, vocabulary and reading note capture, and review digests.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/luminolworks/lexibot/common/environment"
	"github.com/luminolworks/lexibot/common/version"
	"github.com/luminolworks/lexibot/internal/bot"
	"github.com/luminolworks/lexibot/internal/observability"
)

func main() {
	observability.Setup(
		environment.StringOr("LEXIBOT_LOG_LEVEL", "info"),
		environment.StringOr("LEXIBOT_LOG_FORMAT", "text"),
	)

	fmt.Println("lexibot", version.Info())

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := bot.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (bot.Config, error) {
	token, err := environment.RequiredString("LEXIBOT_DISCORD_TOKEN")
	if err != nil {
		return bot.Config{}, err
	}
	apiKey, err := environment.RequiredString("LEXIBOT_LLM_API_KEY")
	if err != nil {
		return bot.Config{}, err
	}
	guilds := guildAllowlist()
	if len(guilds) == 0 {
		return bot.Config{}, fmt.Errorf("LEXIBOT_GUILD_IDS must list at least one guild")
	}

	return bot.Config{
		DiscordToken: token,
		GuildIDs:     guilds,
		LLMAPIKey:    apiKey,
		LLMBaseURL:   environment.StringOr("LEXIBOT_LLM_BASE_URL", ""),
		LLMModel:     environment.StringOr("LEXIBOT_LLM_MODEL", "gpt-4o-mini"),
		DBPath:       environment.StringOr("LEXIBOT_DB_PATH", "lexibot.db"),
		HealthAddr:   environment.StringOr("LEXIBOT_HEALTH_ADDR", ":8080"),
	}, nil
}

// guildAllowlist builds the guild allowlist from LEXIBOT_GUILD_IDS
// (comma-separated), falling back to the per-environment singletons.
func guildAllowlist() []string {
	guilds := environment.StringSliceOr("LEXIBOT_GUILD_IDS", nil)
	for _, name := range []string{"LEXIBOT_TEST_GUILD_ID", "LEXIBOT_PROD_GUILD_ID"} {
		if v, ok := environment.String(name); ok && v != "" {
			guilds = append(guilds, v)
		}
	}
	return guilds
}
