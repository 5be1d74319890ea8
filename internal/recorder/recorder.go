// Package recorder persists classified learning actions and builds the
// confirmation text shown back to the student.
//
// Vocabulary entries are enriched with a model-generated explanation before
// persisting; the explanation call failing never blocks the record, a
// placeholder is stored instead.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/luminolworks/lexibot/internal/classifier"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/prompts"
	"github.com/luminolworks/lexibot/internal/store"
)

// ExplanationFallback is stored and shown when the explanation call fails.
const ExplanationFallback = "（無法取得解釋）"

// Recorder writes learning actions to the store.
type Recorder struct {
	store    *store.Store
	provider llm.Provider
	model    string
	log      *slog.Logger
}

// New creates a Recorder.
func New(st *store.Store, provider llm.Provider, model string) *Recorder {
	return &Recorder{
		store:    st,
		provider: provider,
		model:    model,
		log:      slog.With("component", "recorder"),
	}
}

// AddVocab explains and persists one vocabulary entry, returning the
// confirmation fragment for the user.
func (r *Recorder) AddVocab(ctx context.Context, profileID, word, source, page string) (string, error) {
	explanation := r.explain(ctx, word, source, page)

	entry := &store.VocabularyEntry{
		ProfileID:   profileID,
		Word:        word,
		Source:      nullable(source),
		Page:        nullable(page),
		Explanation: explanation,
	}
	if err := r.store.InsertVocabulary(ctx, entry); err != nil {
		return "", fmt.Errorf("record vocabulary %q: %w", word, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**🔖 %s**", word)
	if source != "" {
		fmt.Fprintf(&b, "（%s", source)
		if page != "" {
			fmt.Fprintf(&b, " 第%s頁", page)
		}
		b.WriteString("）")
	}
	b.WriteString("\n")
	b.WriteString(explanation)
	return b.String(), nil
}

// AddReading persists one reading note, returning the confirmation fragment.
func (r *Recorder) AddReading(ctx context.Context, profileID, source, note string) (string, error) {
	n := &store.ReadingNote{
		ProfileID: profileID,
		Source:    nullable(source),
		Note:      note,
	}
	if err := r.store.InsertReadingNote(ctx, n); err != nil {
		return "", fmt.Errorf("record reading note: %w", err)
	}

	if source != "" {
		return fmt.Sprintf("✍ 已記下《%s》的筆記。", source), nil
	}
	return "✍ 已記下你的閱讀筆記。", nil
}

// Record persists a batch of classified actions and returns the combined
// confirmation text. A single failed action does not abort the batch: its
// fragment reports the failure inline and the rest still get recorded.
func (r *Recorder) Record(ctx context.Context, profileID string, actions []classifier.Action) string {
	var fragments []string
	for _, a := range actions {
		var fragment string
		var err error
		switch a.Type {
		case classifier.ActionVocab:
			fragment, err = r.AddVocab(ctx, profileID, a.Term, a.Source, a.Page)
		case classifier.ActionReading:
			fragment, err = r.AddReading(ctx, profileID, a.Source, a.Note)
		default:
			continue
		}
		if err != nil {
			r.log.Error("failed to record action", "type", a.Type, "error", err)
			fragment = fmt.Sprintf("❌ 紀錄失敗：%s", label(a))
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, "\n\n")
}

// explain asks the model for a learner-oriented explanation of a word, with
// the source and page as context when present. On any failure it logs and
// returns the fallback so recording still proceeds.
func (r *Recorder) explain(ctx context.Context, word, source, page string) string {
	var user strings.Builder
	fmt.Fprintf(&user, "Word: %s", word)
	if source != "" {
		fmt.Fprintf(&user, "\nContext: Book %q", source)
		if page != "" {
			fmt.Fprintf(&user, ", page %s", page)
		}
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.VocabConnector},
			{Role: llm.RoleUser, Content: user.String()},
		},
		Temperature: 1,
	})
	if err != nil {
		r.log.Warn("explanation call failed", "word", word, "error", err)
		return ExplanationFallback
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return ExplanationFallback
	}
	return text
}

func label(a classifier.Action) string {
	if a.Type == classifier.ActionVocab {
		return a.Term
	}
	if a.Source != "" {
		return a.Source
	}
	return a.Note
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
