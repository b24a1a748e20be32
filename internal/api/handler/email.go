package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/mailtrack/internal/api/request"
	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/metrics"
	"github.com/edvin/mailtrack/internal/resend"
)

type Email struct {
	sender   EmailSender
	emails   EmailReader
	events   EventReader
	provider ProviderLookup
}

func NewEmail(sender EmailSender, emails EmailReader, events EventReader, provider ProviderLookup) *Email {
	return &Email{sender: sender, emails: emails, events: events, provider: provider}
}

type sendResponse struct {
	Message        string                    `json:"message"`
	Email          any                       `json:"email"`
	ProviderResult *resend.SendEmailResponse `json:"providerResult"`
}

// Send handles the send endpoint.
func (h *Email) Send(w http.ResponseWriter, r *http.Request) {
	var req request.SendEmail
	if err := request.Decode(r, &req); err != nil {
		metrics.ObserveSend(metrics.SendInvalid)
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.sender.Send(r.Context(), core.SendRequest{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
	})
	if err != nil {
		metrics.ObserveSend(sendOutcome(err))
		writeServiceError(w, r, err)
		return
	}

	metrics.ObserveSend(metrics.SendOK)
	response.WriteJSON(w, http.StatusOK, sendResponse{
		Message:        "Email sent successfully",
		Email:          res.Email,
		ProviderResult: res.Provider,
	})
}

func sendOutcome(err error) string {
	var perr *core.ProviderError
	switch {
	case errors.Is(err, core.ErrValidation):
		return metrics.SendInvalid
	case errors.As(err, &perr):
		return metrics.SendProviderError
	default:
		return metrics.SendStorageError
	}
}

func (h *Email) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	if err := request.ValidateCursor(pg.Cursor); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	emails, hasMore, err := h.emails.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var last string
	if len(emails) > 0 {
		last = emails[len(emails)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, emptyIfNil(emails), request.NextCursor(last, hasMore), hasMore)
}

func (h *Email) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := h.emails.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, email)
}

// Events lists the webhook events linked to one email, oldest first.
func (h *Email) Events(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.events.ListByEmail(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, emptyIfNil(events))
}

// Provider returns the provider's record for a sent email.
func (h *Email) Provider(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := h.emails.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if email.MessageID == nil {
		response.WriteError(w, http.StatusNotFound, "email has no provider message id")
		return
	}

	remote, err := h.provider.GetEmail(r.Context(), *email.MessageID)
	if err != nil {
		var apiErr *resend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			response.WriteError(w, http.StatusNotFound, apiErr.Message)
			return
		}
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, remote)
}
