// Package classifier turns free-form vocabulary channel messages into typed
// learning actions by offering the model a pair of tools and strictly
// validating whatever it calls back with.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/prompts"
)

// ErrClassificationFailed is returned when the model call itself fails.
// Malformed tool arguments do not produce this error; they degrade to a
// fallback or unrecognized result so the user still gets a reply.
var ErrClassificationFailed = errors.New("classifier: classification failed")

// Kind discriminates classification outcomes.
type Kind int

const (
	// KindActions carries one or more validated learning actions.
	KindActions Kind = iota
	// KindReview asks for the learning history digest.
	KindReview
	// KindFallback carries the model's plain-text reply when it chose not
	// to call a tool.
	KindFallback
	// KindUnrecognized means the tool call could not be validated; the
	// message should be acknowledged but nothing recorded.
	KindUnrecognized
)

// ActionType distinguishes the two recordable action shapes.
type ActionType string

const (
	ActionVocab   ActionType = "vocab"
	ActionReading ActionType = "reading"
)

// Action is one validated unit of recordable learning data.
type Action struct {
	Type   ActionType `json:"type"`
	Term   string     `json:"term,omitempty"`
	Source string     `json:"source,omitempty"`
	Page   string     `json:"page,omitempty"`
	Note   string     `json:"note,omitempty"`
}

// Result is the outcome of classifying one message.
type Result struct {
	Kind    Kind
	Actions []Action
	// Reply holds the model's free-text answer for KindFallback results.
	Reply string
}

// actionsSchema validates record_actions arguments before anything is
// persisted. A vocab action without a term or a reading action without a
// note is rejected wholesale.
const actionsSchema = `{
	"type": "object",
	"required": ["actions"],
	"properties": {
		"actions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string", "enum": ["vocab", "reading"]},
					"term": {"type": "string"},
					"source": {"type": "string"},
					"page": {"type": "string"},
					"note": {"type": "string"}
				},
				"allOf": [
					{
						"if": {"properties": {"type": {"const": "vocab"}}},
						"then": {"required": ["term"], "properties": {"term": {"minLength": 1}}}
					},
					{
						"if": {"properties": {"type": {"const": "reading"}}},
						"then": {"required": ["note"], "properties": {"note": {"minLength": 1}}}
					}
				]
			}
		}
	}
}`

var compiledActionsSchema = jsonschema.MustCompileString("record_actions.json", actionsSchema)

// reviewPhrases are matched locally so a plain review request never costs a
// model call.
var reviewPhrases = []string{
	"複習", "复习", "review",
	"列出", "清單", "清单",
	"目前學了", "目前学了", "學了什麼", "学了什么",
}

// IsReviewRequest reports whether the message is a plain request for the
// learning history digest.
func IsReviewRequest(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return false
	}
	for _, p := range reviewPhrases {
		if strings.Contains(trimmed, p) {
			return true
		}
	}
	return false
}

// SingleWord reports whether the message is a bare term: any non-empty text
// containing no whitespace. Such messages are recorded as vocabulary directly
// without consulting the model.
func SingleWord(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Classifier resolves message intent via an LLM function-call round trip.
type Classifier struct {
	provider llm.Provider
	model    string
	log      *slog.Logger
}

// New creates a Classifier backed by the given provider and model.
func New(provider llm.Provider, model string) *Classifier {
	return &Classifier{
		provider: provider,
		model:    model,
		log:      slog.With("component", "classifier"),
	}
}

func tools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        "record_actions",
				Description: "記錄學生訊息中的所有詞彙與閱讀筆記。",
				Parameters:  json.RawMessage(actionsSchema),
			},
		},
		{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        "review_history",
				Description: "學生想查看目前累積的學習紀錄時呼叫。",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {}
				}`),
			},
		},
	}
}

// Classify resolves the intent of one vocabulary channel message.
//
// Review requests are short-circuited locally. Everything else goes to the
// model at temperature zero with the two tools offered; a record_actions
// call is schema-validated before any action is returned, a review_history
// call maps to KindReview, a plain-text answer maps to KindFallback, and an
// invalid call degrades to KindUnrecognized.
func (c *Classifier) Classify(ctx context.Context, text string) (*Result, error) {
	if IsReviewRequest(text) {
		return &Result{Kind: KindReview}, nil
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.Classifier},
			{Role: llm.RoleUser, Content: text},
		},
		Tools:       tools(),
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	if len(resp.Message.ToolCalls) == 0 {
		reply := strings.TrimSpace(resp.Message.Content)
		if reply == "" {
			return &Result{Kind: KindUnrecognized}, nil
		}
		return &Result{Kind: KindFallback, Reply: reply}, nil
	}

	call := resp.Message.ToolCalls[0]
	switch call.Function.Name {
	case "review_history":
		return &Result{Kind: KindReview}, nil
	case "record_actions":
		actions, err := decodeActions(call.Function.Arguments)
		if err != nil {
			c.log.Warn("rejected tool call arguments", "error", err)
			return &Result{Kind: KindUnrecognized}, nil
		}
		return &Result{Kind: KindActions, Actions: actions}, nil
	default:
		c.log.Warn("model called unknown tool", "tool", call.Function.Name)
		return &Result{Kind: KindUnrecognized}, nil
	}
}

// decodeActions validates the raw arguments against the actions schema and
// decodes them. Validation happens on the raw JSON so unknown shapes are
// rejected before any struct decoding softens them.
func decodeActions(raw string) ([]Action, error) {
	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := compiledActionsSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("arguments failed schema validation: %w", err)
	}

	var payload struct {
		Actions []Action `json:"actions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode actions: %w", err)
	}
	for i := range payload.Actions {
		payload.Actions[i].Term = strings.TrimSpace(payload.Actions[i].Term)
		payload.Actions[i].Note = strings.TrimSpace(payload.Actions[i].Note)
		payload.Actions[i].Source = strings.TrimSpace(payload.Actions[i].Source)
		payload.Actions[i].Page = strings.TrimSpace(payload.Actions[i].Page)
	}
	return payload.Actions, nil
}
