package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"whatsapp-quiz-bot/internal/app"
	"whatsapp-quiz-bot/internal/domain"
)

const groupJIDSuffix = "@g.us"

// WebhookHandler receives Evolution API "messages.upsert" events and feeds
// them into the flow service. The webhook is acknowledged immediately;
// processing happens in the background so a slow oracle call never makes the
// Evolution API retry the delivery.
type WebhookHandler struct {
	service *app.FlowService

	// dispatch runs one inbound message. Tests replace it to process inline.
	dispatch func(app.Inbound)
}

func NewWebhookHandler(service *app.FlowService) *WebhookHandler {
	h := &WebhookHandler{service: service}
	h.dispatch = func(in app.Inbound) {
		go h.process(in)
	}
	return h
}

type webhookEvent struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	Key struct {
		RemoteJID   string `json:"remoteJid"`
		FromMe      bool   `json:"fromMe"`
		ID          string `json:"id"`
		Participant string `json:"participant"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
		ButtonsResponseMessage *struct {
			SelectedButtonID string `json:"selectedButtonId"`
		} `json:"buttonsResponseMessage"`
		ListResponseMessage *struct {
			SingleSelectReply struct {
				SelectedRowID string `json:"selectedRowId"`
			} `json:"singleSelectReply"`
		} `json:"listResponseMessage"`
	} `json:"message"`
}

// text finds the message body across the payload shapes Evolution uses for
// plain text, quoted replies and interactive button/list responses.
func (d webhookData) text() string {
	switch {
	case d.Message.Conversation != "":
		return d.Message.Conversation
	case d.Message.ExtendedTextMessage != nil:
		return d.Message.ExtendedTextMessage.Text
	case d.Message.ButtonsResponseMessage != nil:
		return d.Message.ButtonsResponseMessage.SelectedButtonID
	case d.Message.ListResponseMessage != nil:
		return d.Message.ListResponseMessage.SingleSelectReply.SelectedRowID
	}
	return ""
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// Only new inbound text interests us. Everything else (status updates,
	// our own outbound echoes, media) is acknowledged and dropped.
	if event.Event != "messages.upsert" || event.Data.Key.FromMe {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	text := event.Data.text()
	if text == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	remoteJID := event.Data.Key.RemoteJID
	isGroup := strings.HasSuffix(remoteJID, groupJIDSuffix)
	senderID := event.Data.Key.Participant
	if senderID == "" {
		senderID = remoteJID
	}

	h.dispatch(app.Inbound{
		EntityID:   remoteJID,
		IsGroup:    isGroup,
		MessageID:  event.Data.Key.ID,
		SenderID:   senderID,
		SenderName: event.Data.PushName,
		Text:       text,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *WebhookHandler) process(in app.Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	err := h.service.HandleMessage(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateDelivery),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrUnauthorizedEntity):
		// expected outcomes, already answered in-conversation where needed
	default:
		log.Printf("webhook: handle message %s from %s: %v", in.MessageID, in.EntityID, err)
	}
}
