package evolution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody sendTextRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "quizbot", "secret", WithTypingDelay(500))
	if err := client.SendText(context.Background(), "5511999@s.whatsapp.net", "hello"); err != nil {
		t.Fatalf("send text: %v", err)
	}

	if gotPath != "/message/sendText/quizbot" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("unexpected apikey %q", gotKey)
	}
	if gotBody.Number != "5511999@s.whatsapp.net" || gotBody.Text != "hello" || gotBody.Delay != 500 {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestClientSendTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "instance offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "quizbot", "secret")
	if err := client.SendText(context.Background(), "5511999@s.whatsapp.net", "hello"); err == nil {
		t.Fatalf("expected error on non-2xx status")
	}
}
