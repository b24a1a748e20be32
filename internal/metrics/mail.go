package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Send outcomes.
const (
	SendOK            = "sent"
	SendProviderError = "provider_error"
	SendStorageError  = "storage_error"
	SendInvalid       = "invalid"
)

var (
	emailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtrack_emails_sent_total",
			Help: "Send attempts by outcome",
		},
		[]string{"result"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtrack_webhook_events_total",
			Help: "Stored provider webhook events by type and whether they matched an email",
		},
		[]string{"type", "resolved"},
	)
)

// ObserveSend records the outcome of one send attempt.
func ObserveSend(result string) {
	emailsSentTotal.WithLabelValues(result).Inc()
}

// ObserveWebhookEvent records one stored webhook event.
func ObserveWebhookEvent(eventType string, resolved bool) {
	webhookEventsTotal.WithLabelValues(eventType, strconv.FormatBool(resolved)).Inc()
}
