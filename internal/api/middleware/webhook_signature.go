package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/edvin/mailtrack/internal/api/response"
)

const maxWebhookBody = 1 << 20

// WebhookSignature verifies Svix-signed webhook deliveries as sent by
// Resend. The secret is the "whsec_"-prefixed signing secret. An empty secret
// disables verification.
func WebhookSignature(secret string) (func(http.Handler) http.Handler, error) {
	if secret == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				response.WriteError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := wh.Verify(body, r.Header); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("svix_id", r.Header.Get("svix-id")).Msg("rejected webhook")
				response.WriteError(w, http.StatusUnauthorized, "invalid webhook signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
