package request

import "encoding/json"

// WebhookEvent is the body Resend posts to the webhook endpoint. Data is kept
// raw so it can be stored verbatim.
type WebhookEvent struct {
	Type      string          `json:"type" validate:"notblank"`
	CreatedAt string          `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}
