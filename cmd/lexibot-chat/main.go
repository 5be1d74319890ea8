// Command lexibot-chat serves the tutoring chat assistant over HTTP. It is
// a separate deployment from the bot but shares the same database file.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luminolworks/lexibot/common/environment"
	"github.com/luminolworks/lexibot/common/version"
	"github.com/luminolworks/lexibot/internal/assistant"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/observability"
	"github.com/luminolworks/lexibot/internal/store"
)

func main() {
	observability.Setup(
		environment.StringOr("LEXIBOT_LOG_LEVEL", "info"),
		environment.StringOr("LEXIBOT_LOG_FORMAT", "text"),
	)
	slog.Info("lexibot-chat starting", "version", version.Info())

	apiKey, err := environment.RequiredString("LEXIBOT_LLM_API_KEY")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.New(environment.StringOr("LEXIBOT_DB_PATH", "lexibot.db"))
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: environment.StringOr("LEXIBOT_LLM_BASE_URL", ""),
		Model:   environment.StringOr("LEXIBOT_LLM_MODEL", "gpt-4o-mini"),
	})
	svc := assistant.NewService(st, provider, environment.StringOr("LEXIBOT_LLM_MODEL", "gpt-4o-mini"))

	server := &http.Server{
		Addr:         environment.StringOr("LEXIBOT_CHAT_ADDR", ":8081"),
		Handler:      svc.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("chat service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("chat service failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
