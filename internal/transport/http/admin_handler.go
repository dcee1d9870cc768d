package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"whatsapp-quiz-bot/internal/app"
)

// WhitelistAdmin manages the set of authorized conversations.
type WhitelistAdmin interface {
	Add(ctx context.Context, entityID string) (bool, error)
	Remove(ctx context.Context, entityID string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// AdminHandler exposes the operational endpoints: health, active sessions,
// session reset and whitelist management. It is meant to be bound to an
// internal interface, not the public webhook address.
type AdminHandler struct {
	service   *app.FlowService
	whitelist WhitelistAdmin
}

func NewAdminHandler(service *app.FlowService, whitelist WhitelistAdmin) *AdminHandler {
	return &AdminHandler{service: service, whitelist: whitelist}
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/active", h.active)
	mux.HandleFunc("/reset/", h.reset)
	mux.HandleFunc("/whitelist", h.whitelistCollection)
	mux.HandleFunc("/whitelist/", h.whitelistMember)
}

func (h *AdminHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type activeSession struct {
	EntityID     string `json:"entityId"`
	IsGroup      bool   `json:"isGroup"`
	State        string `json:"state"`
	QuizID       string `json:"quizId"`
	CurrentIndex int    `json:"currentIndex"`
	Total        int    `json:"totalQuestions"`
}

func (h *AdminHandler) active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessions, err := h.service.ActiveSessions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]activeSession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, activeSession{
			EntityID:     sess.EntityID,
			IsGroup:      sess.IsGroup,
			State:        string(sess.State),
			QuizID:       sess.QuizID,
			CurrentIndex: sess.CurrentIndex,
			Total:        sess.TotalQuestions,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entityID := strings.TrimPrefix(r.URL.Path, "/reset/")
	if entityID == "" {
		http.Error(w, "missing entity", http.StatusBadRequest)
		return
	}
	if err := h.service.ResetEntity(r.Context(), entityID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset": entityID})
}

type whitelistRequest struct {
	Entity string `json:"entity"`
}

func (h *AdminHandler) whitelistCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		members, err := h.whitelist.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"entities": members})
	case http.MethodPost:
		var req whitelistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Entity == "" {
			http.Error(w, "missing entity", http.StatusBadRequest)
			return
		}
		added, err := h.whitelist.Add(r.Context(), req.Entity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]bool{"added": added})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) whitelistMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entityID := strings.TrimPrefix(r.URL.Path, "/whitelist/")
	if entityID == "" {
		http.Error(w, "missing entity", http.StatusBadRequest)
		return
	}
	removed, err := h.whitelist.Remove(r.Context(), entityID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "not whitelisted", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
