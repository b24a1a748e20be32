package model

import (
	"encoding/json"
	"time"
)

type EmailEvent struct {
	ID             string          `json:"id" db:"id"`
	EmailID        *string         `json:"email_id" db:"email_id"`
	EventType      string          `json:"event_type" db:"event_type"`
	EventTimestamp time.Time       `json:"event_timestamp" db:"event_timestamp"`
	EventPayload   json.RawMessage `json:"event_payload" db:"event_payload"`
	Recipient      *string         `json:"recipient,omitempty" db:"recipient"`
	MessageID      *string         `json:"message_id,omitempty" db:"message_id"`
	ReceivedAt     time.Time       `json:"received_at" db:"received_at"`
}

// Provider webhook event types.
const (
	EventEmailSent            = "email.sent"
	EventEmailDelivered       = "email.delivered"
	EventEmailDeliveryDelayed = "email.delivery_delayed"
	EventEmailComplained      = "email.complained"
	EventEmailBounced         = "email.bounced"
)
