package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/common/trace"
	"github.com/luminolworks/lexibot/internal/channels"
	"github.com/luminolworks/lexibot/internal/classifier"
	"github.com/luminolworks/lexibot/internal/observability"
	"github.com/luminolworks/lexibot/internal/profile"
	"github.com/luminolworks/lexibot/internal/recorder"
	"github.com/luminolworks/lexibot/internal/review"
	"github.com/luminolworks/lexibot/internal/store"
)

// User-facing replies for the message pipeline.
const (
	registerPrompt    = "你還沒有建立個人頻道，請先輸入 /start。"
	busyReply         = "⚠️ 系統忙碌中，請稍後再試。"
	unrecognizedReply = "我看不出這則訊息要記錄什麼，可以換個說法嗎？"
	noteFailedReply   = "❌ 筆記儲存失敗，請稍後再試。"
	digestFailedReply = "❌ 無法讀取學習紀錄，請稍後再試。"
)

// Messenger is the slice of the Discord session the message router needs.
// Faked in tests.
type Messenger interface {
	Reply(channelID, content string) error
	React(channelID, messageID, emoji string) error
}

// Router routes raw guild messages through the classification and recording
// pipeline.
type Router struct {
	selfID     func() string
	guilds     map[string]bool
	messenger  Messenger
	profiles   *profile.Resolver
	channels   *channels.Registry
	classifier *classifier.Classifier
	recorder   *recorder.Recorder
	review     *review.Reporter
}

// NewRouter creates a message Router. selfID resolves the bot's own user id
// per message: it is only known once the gateway session is open, and the
// Router is built before that.
func NewRouter(
	selfID func() string,
	guildIDs []string,
	messenger Messenger,
	profiles *profile.Resolver,
	reg *channels.Registry,
	cls *classifier.Classifier,
	rec *recorder.Recorder,
	rev *review.Reporter,
) *Router {
	guilds := make(map[string]bool, len(guildIDs))
	for _, g := range guildIDs {
		guilds[g] = true
	}
	return &Router{
		selfID:     selfID,
		guilds:     guilds,
		messenger:  messenger,
		profiles:   profiles,
		channels:   reg,
		classifier: cls,
		recorder:   rec,
		review:     rev,
	}
}

// HandleMessage processes one guild message. Every failure is turned into a
// user-visible reply; nothing propagates to the event loop.
func (r *Router) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == r.selfID() {
		return
	}
	if !r.guilds[m.GuildID] {
		return
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}

	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := observability.WithTrace(ctx).With("user", m.Author.ID, "channel", m.ChannelID)

	pair, err := r.channels.PairFor(ctx, m.Author.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reply(log, m.ChannelID, registerPrompt)
			return
		}
		log.Error("failed to resolve channel binding", "error", err)
		r.reply(log, m.ChannelID, registerPrompt)
		return
	}

	switch m.ChannelID {
	case pair.Vocab:
		r.handleVocabMessage(ctx, log, m, text)
	case pair.Reading:
		r.handleReadingMessage(ctx, log, m, text)
	default:
		// Not one of the sender's bound channels.
	}
}

// handleVocabMessage runs the vocabulary channel pipeline: local review
// fast path, single-word fast path, then the classifier.
func (r *Router) handleVocabMessage(ctx context.Context, log *slog.Logger, m *discordgo.MessageCreate, text string) {
	prof, err := r.profiles.Lookup(ctx, m.Author.ID)
	if err != nil {
		log.Error("profile lookup failed", "error", err)
		r.reply(log, m.ChannelID, registerPrompt)
		return
	}

	if classifier.IsReviewRequest(text) {
		r.sendDigest(ctx, log, m.ChannelID, prof.ID)
		return
	}

	// A bare term costs no classification call.
	if classifier.SingleWord(text) {
		fragment, err := r.recorder.AddVocab(ctx, prof.ID, text, "", "")
		if err != nil {
			log.Error("failed to record single word", "error", err)
			r.reply(log, m.ChannelID, noteFailedReply)
			return
		}
		r.reply(log, m.ChannelID, fragment)
		return
	}

	result, err := r.classifier.Classify(ctx, text)
	if err != nil {
		log.Error("classification failed", "error", err)
		r.reply(log, m.ChannelID, busyReply)
		return
	}

	switch result.Kind {
	case classifier.KindActions:
		r.reply(log, m.ChannelID, r.recorder.Record(ctx, prof.ID, result.Actions))
	case classifier.KindReview:
		r.sendDigest(ctx, log, m.ChannelID, prof.ID)
	case classifier.KindFallback:
		r.reply(log, m.ChannelID, result.Reply)
	default:
		r.reply(log, m.ChannelID, unrecognizedReply)
	}
}

// handleReadingMessage records the raw message as a reading note and
// acknowledges with a reaction instead of a reply.
func (r *Router) handleReadingMessage(ctx context.Context, log *slog.Logger, m *discordgo.MessageCreate, text string) {
	prof, err := r.profiles.Lookup(ctx, m.Author.ID)
	if err != nil {
		log.Error("profile lookup failed", "error", err)
		r.reply(log, m.ChannelID, registerPrompt)
		return
	}

	if _, err := r.recorder.AddReading(ctx, prof.ID, "", text); err != nil {
		log.Error("failed to record reading note", "error", err)
		r.react(log, m, "❌")
		r.reply(log, m.ChannelID, noteFailedReply)
		return
	}
	r.react(log, m, "✅")
}

func (r *Router) sendDigest(ctx context.Context, log *slog.Logger, channelID, profileID string) {
	digest, err := r.review.Digest(ctx, profileID)
	if err != nil {
		log.Error("failed to build digest", "error", err)
		r.reply(log, channelID, digestFailedReply)
		return
	}
	r.reply(log, channelID, digest)
}

func (r *Router) reply(log *slog.Logger, channelID, content string) {
	if err := r.messenger.Reply(channelID, content); err != nil {
		log.Error("failed to send reply", "error", err)
	}
}

func (r *Router) react(log *slog.Logger, m *discordgo.MessageCreate, emoji string) {
	if err := r.messenger.React(m.ChannelID, m.ID, emoji); err != nil {
		log.Error("failed to add reaction", "error", err)
	}
}
