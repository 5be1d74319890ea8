package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/luminolworks/lexibot/internal/channels"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/profile"
	"github.com/luminolworks/lexibot/internal/prompts"
	"github.com/luminolworks/lexibot/internal/recorder"
	"github.com/luminolworks/lexibot/internal/review"
	"github.com/luminolworks/lexibot/internal/store"
)

// NotRegisteredReply is shown by commands that need an existing profile.
const NotRegisteredReply = "你還沒有建立個人頻道，請先輸入 /start。"

const defaultQuizQuestions = 5

// Handlers holds the dependencies shared by every slash command handler.
type Handlers struct {
	Profiles *profile.Resolver
	Channels *channels.Registry
	Recorder *recorder.Recorder
	Review   *review.Reporter
	Provider llm.Provider
	Model    string
}

// RegisterAll binds every handler onto the router. Names must match the
// embedded manifest.
func (h *Handlers) RegisterAll(r *Router) {
	r.Register("start", h.HandleStart)
	r.Register("review", h.HandleReview)
	r.Register("addvocab", h.HandleAddVocab)
	r.Register("addnote", h.HandleAddNote)
	r.Register("plan", h.HandlePlan)
	r.Register("quiz", h.HandleQuiz)
}

// HandleStart registers the user and provisions their private channel pair.
// Running it again with live channels is a no-op acknowledgement.
func (h *Handlers) HandleStart(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	user := interactionUser(i)
	if user == nil {
		return "", fmt.Errorf("interaction carries no user")
	}

	prof, err := h.Profiles.Resolve(ctx, user.ID, user.Username)
	if err != nil {
		return "", err
	}

	pair, created, err := h.Channels.Ensure(ctx, prof, i.GuildID)
	if err != nil {
		return fmt.Sprintf("❌ 頻道建立失敗：%v", err), nil
	}

	if created {
		return fmt.Sprintf("✅ 已建立私人訓練頻道：<#%s> 與 <#%s>。", pair.Vocab, pair.Reading), nil
	}
	return fmt.Sprintf("✅ 你已經有私人訓練頻道：<#%s> 與 <#%s>。", pair.Vocab, pair.Reading), nil
}

// HandleReview replies with the user's learning digest.
func (h *Handlers) HandleReview(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	prof, err := h.lookup(ctx, i)
	if err != nil {
		return NotRegisteredReply, nil
	}
	return h.Review.Digest(ctx, prof.ID)
}

// HandleAddVocab records a vocabulary entry directly, bypassing the
// classifier.
func (h *Handlers) HandleAddVocab(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	prof, err := h.lookup(ctx, i)
	if err != nil {
		return NotRegisteredReply, nil
	}

	opts := optionMap(i)
	word := strings.TrimSpace(stringOption(opts, "word"))
	if word == "" {
		return "請提供要記錄的單字。", nil
	}
	return h.Recorder.AddVocab(ctx, prof.ID, word, stringOption(opts, "source"), stringOption(opts, "page"))
}

// HandleAddNote records a reading note directly.
func (h *Handlers) HandleAddNote(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	prof, err := h.lookup(ctx, i)
	if err != nil {
		return NotRegisteredReply, nil
	}

	opts := optionMap(i)
	note := strings.TrimSpace(stringOption(opts, "note"))
	if note == "" {
		return "請提供筆記內容。", nil
	}
	return h.Recorder.AddReading(ctx, prof.ID, stringOption(opts, "source"), note)
}

// HandlePlan generates a 7-day practice plan for a topic and renders the
// model's JSON array as a readable list.
func (h *Handlers) HandlePlan(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	opts := optionMap(i)
	topic := strings.TrimSpace(stringOption(opts, "topic"))
	if topic == "" {
		return "請提供練習主題。", nil
	}

	resp, err := h.Provider.Complete(ctx, llm.CompletionRequest{
		Model: h.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.Plan},
			{Role: llm.RoleUser, Content: topic},
		},
		Temperature: 1,
	})
	if err != nil {
		return "", fmt.Errorf("generate plan: %w", err)
	}

	var days []struct {
		Day  int    `json:"day"`
		Task string `json:"task"`
	}
	raw := stripCodeFence(resp.Message.Content)
	if err := json.Unmarshal([]byte(raw), &days); err != nil || len(days) == 0 {
		// A malformed plan is still useful to the user as-is.
		return strings.TrimSpace(resp.Message.Content), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **%s：七天練習計畫**\n", topic)
	for _, d := range days {
		fmt.Fprintf(&b, "第 %d 天：%s\n", d.Day, d.Task)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// HandleQuiz generates a multiple-choice quiz for a topic.
func (h *Handlers) HandleQuiz(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	opts := optionMap(i)
	topic := strings.TrimSpace(stringOption(opts, "topic"))
	if topic == "" {
		return "請提供測驗主題。", nil
	}
	num := intOption(opts, "num", defaultQuizQuestions)
	if num < 1 || num > 20 {
		num = defaultQuizQuestions
	}

	system := strings.ReplaceAll(prompts.Quiz, "{{num}}", fmt.Sprintf("%d", num))
	resp, err := h.Provider.Complete(ctx, llm.CompletionRequest{
		Model: h.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: topic},
		},
		Temperature: 1,
	})
	if err != nil {
		return "", fmt.Errorf("generate quiz: %w", err)
	}

	var questions []struct {
		Question string   `json:"question"`
		Choices  []string `json:"choices"`
		Answer   string   `json:"answer"`
	}
	raw := stripCodeFence(resp.Message.Content)
	if err := json.Unmarshal([]byte(raw), &questions); err != nil || len(questions) == 0 {
		return strings.TrimSpace(resp.Message.Content), nil
	}

	labels := []string{"A", "B", "C", "D", "E", "F"}
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **%s：測驗（%d 題）**\n", topic, len(questions))
	for qi, q := range questions {
		fmt.Fprintf(&b, "\n%d. %s\n", qi+1, q.Question)
		for ci, c := range q.Choices {
			if ci >= len(labels) {
				break
			}
			fmt.Fprintf(&b, "   %s) %s\n", labels[ci], c)
		}
		fmt.Fprintf(&b, "   ||答案：%s||\n", q.Answer)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (h *Handlers) lookup(ctx context.Context, i *discordgo.InteractionCreate) (*store.Profile, error) {
	user := interactionUser(i)
	if user == nil {
		return nil, fmt.Errorf("interaction carries no user")
	}
	return h.Profiles.Lookup(ctx, user.ID)
}

// interactionUser extracts the invoking user from either a guild or a DM
// interaction.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range i.ApplicationCommandData().Options {
		out[o.Name] = o
	}
	return out
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok {
		return o.StringValue()
	}
	return ""
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, def int) int {
	if o, ok := opts[name]; ok {
		return int(o.IntValue())
	}
	return def
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
