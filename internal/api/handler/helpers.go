package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/resend"
)

// EmailSender is satisfied by *core.Sender.
type EmailSender interface {
	Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error)
}

// WebhookReceiver is satisfied by *core.Receiver.
type WebhookReceiver interface {
	Receive(ctx context.Context, evt core.WebhookEvent) (*core.ReceiveResult, error)
}

// EmailReader is the read side of the Email Store.
type EmailReader interface {
	GetByID(ctx context.Context, id string) (*model.EmailRecord, error)
	List(ctx context.Context, limit int, cursor string) ([]model.EmailRecord, bool, error)
}

// EventReader is the read side of the Event Store.
type EventReader interface {
	ListByEmail(ctx context.Context, emailID string) ([]model.EmailEvent, error)
	List(ctx context.Context, limit int, cursor string) ([]model.EmailEvent, bool, error)
}

// ProviderLookup fetches the provider's view of a sent email.
type ProviderLookup interface {
	GetEmail(ctx context.Context, id string) (*resend.Email, error)
}

// writeServiceError maps core errors to status codes. Storage failures are
// reported as "Failed to <op>" without the database detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		perr *core.ProviderError
		serr *core.StorageError
	)
	switch {
	case errors.Is(err, core.ErrValidation):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &perr):
		response.WriteError(w, http.StatusInternalServerError, perr.Message)
	case errors.As(err, &serr):
		zerolog.Ctx(r.Context()).Error().Err(serr.Err).Str("op", serr.Op).Msg("storage failure")
		response.WriteError(w, http.StatusInternalServerError, "Failed to "+serr.Op)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled service error")
		response.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
