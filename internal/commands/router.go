package commands

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/common/trace"
	"github.com/luminolworks/lexibot/internal/observability"
)

// UnknownCommandReply is shown when an interaction names a command with no
// registered handler.
const UnknownCommandReply = "⚠️ 指令未實作。"

// FailureReply is the generic user-facing message when a handler errors.
const FailureReply = "❌ 處理指令時發生錯誤，請稍後再試。"

// Handler processes one slash command interaction and returns the reply
// text. The dispatcher owns the deferral and the response edit.
type Handler func(ctx context.Context, i *discordgo.InteractionCreate) (string, error)

// Responder is the slice of the Discord session the dispatcher needs.
// Faked in tests.
type Responder interface {
	DeferEphemeral(i *discordgo.InteractionCreate) error
	EditReply(i *discordgo.InteractionCreate, content string) error
}

// Router dispatches slash command interactions to their handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	resp     Responder
	log      *slog.Logger
}

// NewRouter creates an empty Router.
func NewRouter(resp Responder) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		resp:     resp,
		log:      slog.With("component", "commands"),
	}
}

// Register binds a command name to its handler.
func (r *Router) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Dispatch acknowledges the interaction immediately with a deferred
// ephemeral response, runs the handler, and replaces the deferral with the
// handler's reply. Handler errors become a generic failure message so the
// user is never left with a hanging "thinking" state.
func (r *Router) Dispatch(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := observability.WithTrace(ctx).With("command", name)

	if err := r.resp.DeferEphemeral(i); err != nil {
		log.Error("failed to defer interaction", "error", err)
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	reply := UnknownCommandReply
	if ok {
		var err error
		reply, err = h(ctx, i)
		if err != nil {
			log.Error("command handler failed", "error", err)
			reply = FailureReply
		}
	} else {
		log.Warn("unhandled command")
	}

	if err := r.resp.EditReply(i, reply); err != nil {
		log.Error("failed to edit interaction response", "error", err)
	}
}
