package http

import (
	"encoding/json"
	"log"
	"net/http"

	"exam-bot-service/internal/app"
	"exam-bot-service/internal/domain"
)

// WebhookHandler terminates the platform webhook: the GET verification
// handshake and POSTed messaging events.
type WebhookHandler struct {
	service     *app.BotService
	verifyToken string
}

func NewWebhookHandler(service *app.BotService, verifyToken string) *WebhookHandler {
	return &WebhookHandler{service: service, verifyToken: verifyToken}
}

// Inbound envelope shapes. Message and Postback are pointers so a missing
// field is distinguishable from an empty one; any shape mismatch decodes to
// zero values and the event is dropped.
type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []messagingEvent `json:"messaging"`
	} `json:"entry"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message *struct {
		Text string `json:"text"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
}

// ServeWebhook handles both webhook methods on one route.
func (h *WebhookHandler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// verify answers the platform's subscription handshake. The challenge is
// echoed only when the verify token matches.
func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("hub.verify_token") != h.verifyToken {
		http.Error(w, "verification token mismatch", http.StatusForbidden)
		return
	}
	_, _ = w.Write([]byte(r.URL.Query().Get("hub.challenge")))
}

// receive decodes and dispatches delivered events. The webhook is always
// acknowledged with 200 regardless of body shape or handling outcome, so the
// platform never retries into a storm.
func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	defer func() {
		_, _ = w.Write([]byte("OK"))
	}()

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Printf("webhook: ignoring undecodable body: %v", err)
		return
	}
	if envelope.Object != "instagram" {
		return
	}

	for _, entry := range envelope.Entry {
		for _, raw := range entry.Messaging {
			ev, ok := toInboundEvent(raw)
			if !ok {
				continue
			}
			if err := h.service.HandleEvent(r.Context(), ev); err != nil {
				log.Printf("webhook: event from %s failed: %v", ev.SenderID, err)
			}
		}
	}
}

// toInboundEvent validates required fields before dispatch, failing closed on
// shape mismatch.
func toInboundEvent(raw messagingEvent) (domain.InboundEvent, bool) {
	if raw.Sender.ID == "" {
		return domain.InboundEvent{}, false
	}
	ev := domain.InboundEvent{SenderID: raw.Sender.ID}
	switch {
	case raw.Message != nil && raw.Message.Text != "":
		ev.Text = raw.Message.Text
	case raw.Postback != nil && raw.Postback.Payload != "":
		ev.PostbackPayload = raw.Postback.Payload
	}
	return ev, true
}
