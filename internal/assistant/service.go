// Package assistant implements the multi-turn tutoring chat service: an
// HTTP endpoint that answers a user's message with the last ten turns of
// their conversation as context.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luminolworks/lexibot/common/retry"
	"github.com/luminolworks/lexibot/internal/llm"
	"github.com/luminolworks/lexibot/internal/prompts"
	"github.com/luminolworks/lexibot/internal/store"
)

// historyWindow is the number of prior turns replayed as context.
const historyWindow = 10

// chatTemperature favors varied tutoring phrasing over determinism.
const chatTemperature = 0.7

// Service answers chat messages with conversation history.
type Service struct {
	store    *store.Store
	provider llm.Provider
	model    string
	log      *slog.Logger
}

// NewService creates a chat Service.
func NewService(st *store.Store, provider llm.Provider, model string) *Service {
	return &Service{
		store:    st,
		provider: provider,
		model:    model,
		log:      slog.With("component", "assistant"),
	}
}

// Chat answers one user message. The user's turn and the assistant's reply
// are both persisted; history is only read, never trimmed.
func (s *Service) Chat(ctx context.Context, profileID, message string) (string, error) {
	history, err := s.store.RecentChatTurns(ctx, profileID, historyWindow)
	if err != nil {
		return "", fmt.Errorf("load chat history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompts.Tutor})
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	var resp *llm.CompletionResponse
	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, llm.ErrRateLimit)
		},
	}, func() error {
		var cerr error
		resp, cerr = s.provider.Complete(ctx, llm.CompletionRequest{
			Model:       s.model,
			Messages:    messages,
			Temperature: chatTemperature,
		})
		return cerr
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	reply := strings.TrimSpace(resp.Message.Content)
	if err := s.store.AppendChatTurn(ctx, profileID, "user", message); err != nil {
		return "", fmt.Errorf("persist user turn: %w", err)
	}
	if err := s.store.AppendChatTurn(ctx, profileID, "assistant", reply); err != nil {
		return "", fmt.Errorf("persist assistant turn: %w", err)
	}
	return reply, nil
}

// Handler returns the HTTP handler for POST /chat.
//
// Request:  {"user_id": "...", "message": "..."}
// Response: {"reply": "..."}
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == "" || req.Message == "" {
		http.Error(w, "user_id and message are required", http.StatusBadRequest)
		return
	}

	prof, err := s.store.GetProfileByDiscordID(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown user", http.StatusNotFound)
			return
		}
		s.log.Error("profile lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	reply, err := s.Chat(r.Context(), prof.ID, req.Message)
	if err != nil {
		s.log.Error("chat failed", "user", req.UserID, "error", err)
		http.Error(w, "chat unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}
