package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/api/request"
	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/metrics"
)

type Webhook struct {
	receiver WebhookReceiver
}

func NewWebhook(receiver WebhookReceiver) *Webhook {
	return &Webhook{receiver: receiver}
}

// Resend ingests one provider event. Any completed processing, including an
// event that matched no email, answers 200 {"received": true}.
func (h *Webhook) Resend(w http.ResponseWriter, r *http.Request) {
	var req request.WebhookEvent
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.receiver.Receive(r.Context(), core.WebhookEvent{
		Type:      req.Type,
		CreatedAt: req.CreatedAt,
		Data:      req.Data,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.ObserveWebhookEvent(eventLabel(req.Type), res.ResolvedBy != "")
	zerolog.Ctx(r.Context()).Debug().
		Str("event_type", req.Type).
		Str("event_id", res.Event.ID).
		Str("resolved_by", res.ResolvedBy).
		Msg("webhook processed")

	response.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// eventLabel bounds metric cardinality to the known event types.
func eventLabel(eventType string) string {
	if _, ok := core.TransitionFor(eventType); ok {
		return eventType
	}
	return "other"
}
