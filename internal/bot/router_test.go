package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/internal/channels"
	"github.com/luminolworks/lexibot/internal/classifier"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/profile"
	"github.com/luminolworks/lexibot/internal/recorder"
	"github.com/luminolworks/lexibot/internal/review"
	"github.com/luminolworks/lexibot/internal/store"
)

const (
	testBotID   = "bot-user"
	testGuildID = "guild-1"
)

type fakeMessenger struct {
	replies   []string
	reactions []string
}

func (f *fakeMessenger) Reply(channelID, content string) error {
	f.replies = append(f.replies, content)
	return nil
}

func (f *fakeMessenger) React(channelID, messageID, emoji string) error {
	f.reactions = append(f.reactions, emoji)
	return nil
}

type fakeProvider struct {
	calls int
	resp  *llm.CompletionResponse
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.resp != nil {
		return f.resp, nil
	}
	return &llm.CompletionResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: "好的"},
		FinishReason: "stop",
	}, nil
}

type fakeProvisioner struct{}

func (fakeProvisioner) ChannelExists(guildID, channelID string) (bool, error) { return true, nil }

func (fakeProvisioner) CreatePair(guildID, ownerID, username string) (channels.Pair, error) {
	return channels.Pair{Vocab: "vocab-ch", Reading: "reading-ch"}, nil
}

type fixture struct {
	router    *Router
	store     *store.Store
	messenger *fakeMessenger
	provider  *fakeProvider
	profileID string
}

// newFixture builds a router over a temp store with one registered user
// ("discord-1") bound to vocab-ch and reading-ch.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	profiles := profile.NewResolver(st)
	prof, err := profiles.Resolve(ctx, "discord-1", "alice")
	if err != nil {
		t.Fatalf("resolve profile: %v", err)
	}
	registry := channels.NewRegistry(st, fakeProvisioner{})
	if _, _, err := registry.Ensure(ctx, prof, testGuildID); err != nil {
		t.Fatalf("ensure channels: %v", err)
	}

	messenger := &fakeMessenger{}
	provider := &fakeProvider{}
	router := NewRouter(
		func() string { return testBotID },
		[]string{testGuildID, "guild-2"},
		messenger,
		profiles, registry,
		classifier.New(provider, "test-model"),
		recorder.New(st, provider, "test-model"),
		review.New(st),
	)
	return &fixture{
		router:    router,
		store:     st,
		messenger: messenger,
		provider:  provider,
		profileID: prof.ID,
	}
}

func message(authorID, channelID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg-1",
			GuildID:   testGuildID,
			ChannelID: channelID,
			Content:   content,
			Author:    &discordgo.User{ID: authorID, Username: "alice"},
		},
	}
}

func TestIgnoredMessagesTouchNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Bot-authored.
	f.router.HandleMessage(ctx, message(testBotID, "vocab-ch", "ephemeral"))

	// Guild not on the allowlist.
	wrongGuild := message("discord-1", "vocab-ch", "ephemeral")
	wrongGuild.GuildID = "other-guild"
	f.router.HandleMessage(ctx, wrongGuild)

	// Channel not bound to the sender.
	f.router.HandleMessage(ctx, message("discord-1", "random-ch", "ephemeral"))

	if len(f.messenger.replies) != 0 || len(f.messenger.reactions) != 0 {
		t.Errorf("ignored messages should produce no output: %v %v", f.messenger.replies, f.messenger.reactions)
	}
	if f.provider.calls != 0 {
		t.Errorf("ignored messages should not reach the model, got %d calls", f.provider.calls)
	}
	if n, _ := f.store.VocabularyCount(ctx, f.profileID); n != 0 {
		t.Errorf("ignored messages should not write to the store, got %d entries", n)
	}
}

func TestAllAllowlistedGuildsAreServed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := message("discord-1", "vocab-ch", "ephemeral")
	m.GuildID = "guild-2"
	f.router.HandleMessage(ctx, m)

	if n, _ := f.store.VocabularyCount(ctx, f.profileID); n != 1 {
		t.Errorf("message from a second allowlisted guild should be routed, got %d entries", n)
	}
}

func TestUnregisteredUserGetsRegisterPrompt(t *testing.T) {
	f := newFixture(t)

	f.router.HandleMessage(context.Background(), message("discord-stranger", "vocab-ch", "hello there"))

	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != registerPrompt {
		t.Errorf("expected register prompt, got %v", f.messenger.replies)
	}
	if f.provider.calls != 0 {
		t.Errorf("unregistered messages should not reach the model, got %d calls", f.provider.calls)
	}
}

func TestSingleWordFastPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleMessage(ctx, message("discord-1", "vocab-ch", "  ephemeral  "))

	entries, err := f.store.ListVocabulary(ctx, f.profileID)
	if err != nil {
		t.Fatalf("list vocabulary: %v", err)
	}
	if len(entries) != 1 || entries[0].Word != "ephemeral" {
		t.Fatalf("expected one trimmed entry, got %+v", entries)
	}

	// One explanation call, zero classification calls.
	if f.provider.calls != 1 {
		t.Errorf("expected exactly 1 model call (explanation), got %d", f.provider.calls)
	}
	if len(f.messenger.replies) != 1 || !strings.Contains(f.messenger.replies[0], "ephemeral") {
		t.Errorf("expected confirmation reply, got %v", f.messenger.replies)
	}
}

func TestSingleWordFastPathKeepsPunctuation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleMessage(ctx, message("discord-1", "vocab-ch", "serendipity!"))

	entries, err := f.store.ListVocabulary(ctx, f.profileID)
	if err != nil {
		t.Fatalf("list vocabulary: %v", err)
	}
	if len(entries) != 1 || entries[0].Word != "serendipity!" {
		t.Fatalf("expected one entry with trimmed input, got %+v", entries)
	}
	// Explanation only; never a classification call.
	if f.provider.calls != 1 {
		t.Errorf("expected exactly 1 model call, got %d", f.provider.calls)
	}
}

func TestReviewFastPathSkipsModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleMessage(ctx, message("discord-1", "vocab-ch", "幫我複習一下"))

	if f.provider.calls != 0 {
		t.Errorf("review fast path should not call the model, got %d calls", f.provider.calls)
	}
	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != review.EmptyDigest {
		t.Errorf("expected empty digest, got %v", f.messenger.replies)
	}
}

func TestClassifiedActionsAreRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.resp = &llm.CompletionResponse{
		Message: llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:   "call-1",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      "record_actions",
					Arguments: `{"actions": [{"type": "vocab", "term": "serendipity", "source": "一篇文章"}]}`,
				},
			}},
		},
		FinishReason: "tool_calls",
	}

	f.router.HandleMessage(ctx, message("discord-1", "vocab-ch", "我在一篇文章看到 serendipity 這個字"))

	entries, err := f.store.ListVocabulary(ctx, f.profileID)
	if err != nil {
		t.Fatalf("list vocabulary: %v", err)
	}
	if len(entries) != 1 || entries[0].Word != "serendipity" {
		t.Fatalf("expected recorded entry, got %+v", entries)
	}
	if len(f.messenger.replies) != 1 {
		t.Errorf("expected one confirmation reply, got %v", f.messenger.replies)
	}
}

func TestReadingChannelRecordsAndReacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleMessage(ctx, message("discord-1", "reading-ch", "生態描寫很精彩"))

	notes, err := f.store.ListReadingNotes(ctx, f.profileID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Note != "生態描寫很精彩" {
		t.Fatalf("note not recorded: %+v", notes)
	}
	if len(f.messenger.reactions) != 1 || f.messenger.reactions[0] != "✅" {
		t.Errorf("expected ✅ reaction, got %v", f.messenger.reactions)
	}
	if len(f.messenger.replies) != 0 {
		t.Errorf("reading channel should react, not reply: %v", f.messenger.replies)
	}
	if f.provider.calls != 0 {
		t.Errorf("reading channel should not call the model, got %d calls", f.provider.calls)
	}
}
