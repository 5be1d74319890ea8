package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/internal/channels"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/profile"
	"github.com/luminolworks/lexibot/internal/recorder"
	"github.com/luminolworks/lexibot/internal/review"
	"github.com/luminolworks/lexibot/internal/store"
)

type fakeProvider struct {
	reply string
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: f.reply},
		FinishReason: "stop",
	}, nil
}

type fakeProvisioner struct{ created int }

func (f *fakeProvisioner) ChannelExists(guildID, channelID string) (bool, error) { return true, nil }

func (f *fakeProvisioner) CreatePair(guildID, ownerID, username string) (channels.Pair, error) {
	f.created++
	return channels.Pair{Vocab: "vocab-ch", Reading: "reading-ch"}, nil
}

type failingProvisioner struct{}

func (failingProvisioner) ChannelExists(guildID, channelID string) (bool, error) { return false, nil }

func (failingProvisioner) CreatePair(guildID, ownerID, username string) (channels.Pair, error) {
	return channels.Pair{}, errors.New("missing Manage Channels permission")
}

func newHandlers(t *testing.T, prov llm.Provider) (*Handlers, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &Handlers{
		Profiles: profile.NewResolver(st),
		Channels: channels.NewRegistry(st, &fakeProvisioner{}),
		Recorder: recorder.New(st, prov, "test-model"),
		Review:   review.New(st),
		Provider: prov,
		Model:    "test-model",
	}, st
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func TestHandleStartProvisionsChannels(t *testing.T) {
	h, st := newHandlers(t, &fakeProvider{})

	reply, err := h.HandleStart(context.Background(), commandInteraction("start"))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(reply, "<#vocab-ch>") || !strings.Contains(reply, "<#reading-ch>") {
		t.Errorf("reply should mention both channels: %q", reply)
	}

	prof, err := st.GetProfileByDiscordID(context.Background(), "discord-1")
	if err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if _, err := st.GetBinding(context.Background(), prof.ID); err != nil {
		t.Errorf("binding not persisted: %v", err)
	}
}

func TestHandleStartSurfacesProvisioningError(t *testing.T) {
	h, st := newHandlers(t, &fakeProvider{})
	h.Channels = channels.NewRegistry(st, &failingProvisioner{})

	reply, err := h.HandleStart(context.Background(), commandInteraction("start"))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(reply, "missing Manage Channels permission") {
		t.Errorf("provisioning error should be surfaced verbatim, got %q", reply)
	}
}

func TestHandleReviewUnregistered(t *testing.T) {
	h, _ := newHandlers(t, &fakeProvider{})

	reply, err := h.HandleReview(context.Background(), commandInteraction("review"))
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reply != NotRegisteredReply {
		t.Errorf("expected registration prompt, got %q", reply)
	}
}

func TestHandleAddVocab(t *testing.T) {
	h, st := newHandlers(t, &fakeProvider{reply: "短暫的"})
	ctx := context.Background()

	if _, err := h.HandleStart(ctx, commandInteraction("start")); err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := h.HandleAddVocab(ctx, commandInteraction("addvocab",
		strOpt("word", "ephemeral"), strOpt("source", "Dune"), strOpt("page", "42")))
	if err != nil {
		t.Fatalf("addvocab: %v", err)
	}
	if !strings.Contains(reply, "ephemeral") {
		t.Errorf("reply missing word: %q", reply)
	}

	prof, _ := st.GetProfileByDiscordID(ctx, "discord-1")
	n, _ := st.VocabularyCount(ctx, prof.ID)
	if n != 1 {
		t.Errorf("expected 1 vocabulary entry, got %d", n)
	}
}

func TestHandleAddNote(t *testing.T) {
	h, st := newHandlers(t, &fakeProvider{})
	ctx := context.Background()

	if _, err := h.HandleStart(ctx, commandInteraction("start")); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := h.HandleAddNote(ctx, commandInteraction("addnote",
		strOpt("note", "生態描寫很精彩"), strOpt("source", "Dune"))); err != nil {
		t.Fatalf("addnote: %v", err)
	}

	prof, _ := st.GetProfileByDiscordID(ctx, "discord-1")
	n, _ := st.ReadingNoteCount(ctx, prof.ID)
	if n != 1 {
		t.Errorf("expected 1 reading note, got %d", n)
	}
}

func TestHandlePlanRendersJSON(t *testing.T) {
	h, _ := newHandlers(t, &fakeProvider{reply: `[
		{"day": 1, "task": "閱讀一篇短文"},
		{"day": 2, "task": "造句練習"}
	]`})

	reply, err := h.HandlePlan(context.Background(), commandInteraction("plan", strOpt("topic", "旅行英文")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(reply, "第 1 天：閱讀一篇短文") || !strings.Contains(reply, "第 2 天：造句練習") {
		t.Errorf("plan not rendered:\n%s", reply)
	}
}

func TestHandlePlanMalformedJSONPassesThrough(t *testing.T) {
	h, _ := newHandlers(t, &fakeProvider{reply: "Day 1: read something"})

	reply, err := h.HandlePlan(context.Background(), commandInteraction("plan", strOpt("topic", "旅行英文")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if reply != "Day 1: read something" {
		t.Errorf("expected raw model reply, got %q", reply)
	}
}

func TestHandleQuizRendersQuestions(t *testing.T) {
	h, _ := newHandlers(t, &fakeProvider{reply: "```json\n" + `[
		{"question": "選出同義詞", "choices": ["甲", "乙", "丙", "丁"], "answer": "甲"}
	]` + "\n```"})

	reply, err := h.HandleQuiz(context.Background(), commandInteraction("quiz", strOpt("topic", "同義詞")))
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if !strings.Contains(reply, "選出同義詞") || !strings.Contains(reply, "A) 甲") {
		t.Errorf("quiz not rendered:\n%s", reply)
	}
	if !strings.Contains(reply, "||答案：甲||") {
		t.Errorf("answer spoiler missing:\n%s", reply)
	}
}
