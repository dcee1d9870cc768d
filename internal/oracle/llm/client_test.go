package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected authorization %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "pong"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key-1", "gpt-4o-mini")
	got, err := client.Complete(context.Background(), "system prompt", "ping")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "pong" {
		t.Fatalf("expected pong, got %q", got)
	}
}

func TestClientCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key-1", "gpt-4o-mini")
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected API error to surface")
	}
}

func TestCleanJSONContent(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      "{\"a\":1}",
		"```json\n{\"a\":1}\n```":        "{\"a\":1}",
		"```\n{\"a\":1}\n```":            "{\"a\":1}",
		"  \n```json\n{\"a\":1}\n```  ":  "{\"a\":1}",
	}
	for in, want := range cases {
		if got := cleanJSONContent(in); got != want {
			t.Errorf("cleanJSONContent(%q) = %q, want %q", in, got, want)
		}
	}
}
