package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luminolworks/lexibot/internal/llm"
)

func TestComplete_PlainText(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization: got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`))
	}))
	defer srv.Close()

	p := llm.NewOpenAI(llm.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Message.Content != "hello" {
		t.Errorf("Content: got %q, want %q", resp.Message.Content, "hello")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason: got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("TotalTokens: got %d, want 12", resp.Usage.TotalTokens)
	}

	if gotReq["model"] != "test-model" {
		t.Errorf("model: got %v, want test-model", gotReq["model"])
	}
	if temp, ok := gotReq["temperature"].(float64); !ok || temp != 0.7 {
		t.Errorf("temperature: got %v, want 0.7", gotReq["temperature"])
	}
}

func TestComplete_TemperatureZeroIsSentExplicitly(t *testing.T) {
	var rawBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := llm.NewOpenAI(llm.OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// The deterministic classification call depends on temperature 0 actually
	// reaching the API, so the field must not be omitted when zero.
	if _, ok := rawBody["temperature"]; !ok {
		t.Error("temperature field missing from request body")
	}
}

func TestComplete_ToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"record_actions","arguments":"{\"actions\":[]}"}}]},"finish_reason":"tool_calls"}]}`))
	}))
	defer srv.Close()

	p := llm.NewOpenAI(llm.OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "deceit p.35"}},
		Tools: []llm.ToolDefinition{{
			Type:     "function",
			Function: llm.FunctionDef{Name: "record_actions"},
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.Function.Name != "record_actions" {
		t.Errorf("tool name: got %q", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"actions":[]}` {
		t.Errorf("arguments: got %q", tc.Function.Arguments)
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := llm.NewOpenAI(llm.OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestComplete_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	p := llm.NewOpenAI(llm.OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
}
