// Package bot wires the Discord session, the store, and the message and
// command pipelines into a runnable application.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/internal/channels"
	"github.com/luminolworks/lexibot/internal/classifier"
	"github.com/luminolworks/lexibot/internal/commands"
	"github.com/luminolworks/lexibot/internal/discord"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/profile"
	"github.com/luminolworks/lexibot/internal/recorder"
	"github.com/luminolworks/lexibot/internal/review"
	"github.com/luminolworks/lexibot/internal/store"
)

// Config holds everything the application needs to run.
type Config struct {
	DiscordToken string
	// GuildIDs is the allowlist of guilds the bot serves; messages from any
	// other guild are ignored.
	GuildIDs []string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	DBPath     string
	HealthAddr string
}

// Validate checks that the required settings are present.
func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("discord token is required")
	}
	if len(c.GuildIDs) == 0 {
		return fmt.Errorf("at least one guild id is required")
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("llm api key is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

// App is the assembled bot.
type App struct {
	cfg      Config
	store    *store.Store
	session  *discord.Session
	router   *Router
	cmds     *commands.Router
	registry *channels.Registry
	health   *HealthServer
	log      *slog.Logger
}

// New builds the application graph. The gateway is not connected and the
// health listener not started until Run. All event handlers, including the
// message router, are fully wired here so no event can observe a
// half-constructed app.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	session, err := discord.New(discord.Config{Token: cfg.DiscordToken})
	if err != nil {
		st.Close()
		return nil, err
	}

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})

	profiles := profile.NewResolver(st)
	registry := channels.NewRegistry(st, session)
	rec := recorder.New(st, provider, cfg.LLMModel)
	rev := review.New(st)

	app := &App{
		cfg:      cfg,
		store:    st,
		session:  session,
		registry: registry,
		health:   NewHealthServer(cfg.HealthAddr, st),
		log:      slog.With("component", "app"),
	}

	// The bot's own user id is only known after the gateway connects, so the
	// router resolves it per message through the session.
	app.router = NewRouter(
		session.BotUserID, cfg.GuildIDs, session,
		profiles, registry,
		classifier.New(provider, cfg.LLMModel),
		rec, rev,
	)

	cmdRouter := commands.NewRouter(session)
	handlers := &commands.Handlers{
		Profiles: profiles,
		Channels: registry,
		Recorder: rec,
		Review:   rev,
		Provider: provider,
		Model:    cfg.LLMModel,
	}
	handlers.RegisterAll(cmdRouter)
	app.cmds = cmdRouter

	session.OnMessage(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		app.router.HandleMessage(context.Background(), m)
	})
	session.OnInteraction(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		app.cmds.Dispatch(context.Background(), i)
	})

	return app, nil
}

// Run connects to the gateway, warms the channel cache, and blocks until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.session.Start(); err != nil {
		return err
	}

	if err := a.registry.WarmFromStore(ctx); err != nil {
		a.log.Warn("channel cache warm failed", "error", err)
	}

	go a.health.Start()
	a.log.Info("bot running", "guilds", a.cfg.GuildIDs)

	<-ctx.Done()
	return a.Stop()
}

// Stop disconnects and releases resources.
func (a *App) Stop() error {
	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.health.Stop(shutdownCtx); err != nil {
		a.log.Error("health server shutdown failed", "error", err)
	}
	if err := a.session.Stop(); err != nil {
		a.log.Error("gateway close failed", "error", err)
	}
	return a.store.Close()
}
