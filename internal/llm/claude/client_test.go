package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// newTestClient points the SDK at a local test server.
func newTestClient(srv *httptest.Server) *Client {
	return New("test-key", "claude-sonnet-4-20250514",
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "text", "text": "Dear Jane,"},
				{"type": "text", "text": " your refund is on its way."}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 12}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.Complete(context.Background(), "You are a support assistant.", "Where is my refund?")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "Dear Jane, your refund is on its way." {
		t.Errorf("reply = %q, want concatenated text blocks", got)
	}

	if gotBody["model"] != "claude-sonnet-4-20250514" {
		t.Errorf("model = %v", gotBody["model"])
	}
	system, ok := gotBody["system"].([]any)
	if !ok || len(system) != 1 {
		t.Fatalf("system = %v, want one block", gotBody["system"])
	}
	if block := system[0].(map[string]any); block["text"] != "You are a support assistant." {
		t.Errorf("system text = %v", block["text"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want one user message", gotBody["messages"])
	}
	if msg := msgs[0].(map[string]any); msg["role"] != "user" {
		t.Errorf("role = %v, want user", msg["role"])
	}
}

func TestComplete_SkipsNonTextBlocks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_02",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "tool_use", "id": "tu-1", "name": "lookup", "input": {}},
				{"type": "text", "text": "the answer"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "the answer" {
		t.Errorf("reply = %q, want only the text block", got)
	}
}

func TestComplete_EmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_03",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [],
			"stop_reason": "max_tokens",
			"usage": {"input_tokens": 1, "output_tokens": 0}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error on empty content")
	}
	if !strings.Contains(err.Error(), "max_tokens") {
		t.Errorf("error should name the stop reason, got %v", err)
	}
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error on API failure")
	}
}
