package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"whatsapp-quiz-bot/internal/app"
	"whatsapp-quiz-bot/internal/infra/memory"
)

func newAdminServer(t *testing.T, service *app.FlowService) *httptest.Server {
	t.Helper()
	wl, err := memory.NewWhitelist("")
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	mux := http.NewServeMux()
	NewAdminHandler(service, wl).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAdminWhitelistCRUD(t *testing.T) {
	server := newAdminServer(t, newTestService(&captureSink{}))

	resp, err := http.Post(server.URL+"/whitelist", "application/json", strings.NewReader(`{"entity":"g1@g.us"}`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/whitelist")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed struct {
		Entities []string `json:"entities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(listed.Entities) != 1 || listed.Entities[0] != "g1@g.us" {
		t.Fatalf("unexpected list %v", listed.Entities)
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/whitelist/g1@g.us", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/whitelist/g1@g.us", nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing member, got %d", resp.StatusCode)
	}
}

func TestAdminActiveAndReset(t *testing.T) {
	sink := &captureSink{}
	service := newTestService(sink)
	server := newAdminServer(t, service)

	in := app.Inbound{EntityID: "u1@s.whatsapp.net", MessageID: "m1", SenderID: "u1@s.whatsapp.net", Text: "START"}
	if err := service.HandleMessage(context.Background(), in); err != nil {
		t.Fatalf("start quiz: %v", err)
	}

	resp, err := http.Get(server.URL + "/active")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	var active []activeSession
	if err := json.NewDecoder(resp.Body).Decode(&active); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	resp.Body.Close()
	if len(active) != 1 || active[0].State != "in_quiz" {
		t.Fatalf("unexpected active sessions %+v", active)
	}

	resp, err = http.Post(server.URL+"/reset/u1@s.whatsapp.net", "application/json", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(server.URL + "/active")
	active = nil
	_ = json.NewDecoder(resp.Body).Decode(&active)
	resp.Body.Close()
	if len(active) != 0 {
		t.Fatalf("expected no active sessions after reset, got %+v", active)
	}
}

func TestAdminHealth(t *testing.T) {
	server := newAdminServer(t, newTestService(&captureSink{}))
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
