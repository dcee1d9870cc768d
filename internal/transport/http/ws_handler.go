package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"whatsapp-quiz-bot/internal/app"
	"whatsapp-quiz-bot/internal/domain"
)

// WSHandler streams live ranking updates for a group conversation, e.g. to a
// projector screen at an event while participants answer over WhatsApp.
type WSHandler struct {
	service  *app.FlowService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.FlowService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string                 `json:"type"`
	Payload domain.RankingSnapshot `json:"payload"`
}

// ServeWS upgrades the request and pushes one message per ranking change.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity")
	if entityID == "" {
		http.Error(w, "missing entity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeRanking(entityID)
	defer cancel()

	// Reader goroutine only notices the peer going away; clients never send.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "ranking", Payload: snapshot}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
