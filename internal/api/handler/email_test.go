package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/resend"
)

func newEmailHandler() (*Email, *fakeSender, *fakeEmails, *fakeEvents, *fakeProvider) {
	s, e, ev, p := &fakeSender{}, &fakeEmails{}, &fakeEvents{}, &fakeProvider{}
	return NewEmail(s, e, ev, p), s, e, ev, p
}

// --- Send ---

func TestEmailSend_Success(t *testing.T) {
	h, sender, _, _, _ := newEmailHandler()
	email := sentEmail("e-1")
	sender.On("Send", core.SendRequest{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>"}).
		Return(&core.SendResult{Email: &email, Provider: &resend.SendEmailResponse{ID: "M"}}, nil)

	rec := httptest.NewRecorder()
	h.Send(rec, newRequest(http.MethodPost, "/api/send-email", map[string]string{
		"to": "a@example.com", "subject": "Hi", "html": "<p>x</p>",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message        string            `json:"message"`
		Email          model.EmailRecord `json:"email"`
		ProviderResult map[string]string `json:"providerResult"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Email sent successfully", body.Message)
	assert.Equal(t, "e-1", body.Email.ID)
	assert.Equal(t, model.StatusSent, body.Email.Status)
	assert.Equal(t, "M", body.ProviderResult["id"])
	sender.AssertExpectations(t)
}

func TestEmailSend_InvalidJSON(t *testing.T) {
	h, sender, _, _, _ := newEmailHandler()
	rec := httptest.NewRecorder()

	h.Send(rec, newRequestRaw(http.MethodPost, "/api/send-email", "{bad json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid JSON")
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestEmailSend_MissingFields(t *testing.T) {
	h, sender, _, _, _ := newEmailHandler()
	rec := httptest.NewRecorder()

	h.Send(rec, newRequest(http.MethodPost, "/api/send-email", map[string]string{"to": "a@example.com"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation error: missing required fields: subject, html", decodeErrorResponse(rec)["error"])
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestEmailSend_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{
			name:   "provider",
			err:    &core.ProviderError{StatusCode: 403, Message: "The acme.test domain is not verified."},
			status: http.StatusInternalServerError,
			want:   "The acme.test domain is not verified.",
		},
		{
			name:   "insert",
			err:    &core.StorageError{Op: "save email metadata", Err: errors.New("connection refused")},
			status: http.StatusInternalServerError,
			want:   "Failed to save email metadata",
		},
		{
			name:   "validation",
			err:    fmt.Errorf("%w: missing required fields: to", core.ErrValidation),
			status: http.StatusBadRequest,
			want:   "validation error: missing required fields: to",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			want:   "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, _, _, _ := newEmailHandler()
			sender.On("Send", mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			h.Send(rec, newRequest(http.MethodPost, "/api/send-email", map[string]string{
				"to": "a@example.com", "subject": "Hi", "html": "<p>x</p>",
			}))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, decodeErrorResponse(rec)["error"])
		})
	}
}

// --- List / Get ---

func TestEmailList_Paginated(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	emails.On("List", 2, "").Return([]model.EmailRecord{sentEmail("e-3"), sentEmail("e-2")}, true, nil)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/emails?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items      []model.EmailRecord `json:"items"`
		NextCursor string              `json:"next_cursor"`
		HasMore    bool                `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)
	assert.True(t, body.HasMore)
	assert.Equal(t, "e-2", body.NextCursor)
}

func TestEmailList_Empty(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	emails.On("List", 50, "").Return(nil, false, nil)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/emails", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"has_more":false}`, rec.Body.String())
}

func TestEmailList_Error(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	emails.On("List", 50, "").Return(nil, false, errors.New("list emails: timeout"))

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/emails", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEmailGet_Success(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	e := sentEmail(emailID)
	emails.On("GetByID", emailID).Return(&e, nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+emailID, nil), "id", emailID)
	h.Get(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a@example.com", body["to_email"])
	assert.Equal(t, "M", body["message_id"])
}

func TestEmailGet_NotFound(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	emails.On("GetByID", missingID).Return(nil, fmt.Errorf("get email %s: %w", missingID, core.ErrNotFound))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+missingID, nil), "id", missingID)
	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmailGet_MissingID(t *testing.T) {
	h, _, _, _, _ := newEmailHandler()
	rec := httptest.NewRecorder()

	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/", nil), "id", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "missing required ID")
}

func TestEmailGet_NotUUID(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	rec := httptest.NewRecorder()

	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/e-1", nil), "id", "e-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "must be a UUID")
	emails.AssertNotCalled(t, "GetByID", mock.Anything)
}

func TestEmailList_InvalidCursor(t *testing.T) {
	h, _, emails, _, _ := newEmailHandler()
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/api/v1/emails?cursor=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid cursor")
	emails.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestEmailEvents(t *testing.T) {
	h, _, _, evts, _ := newEmailHandler()
	id := emailID
	evts.On("ListByEmail", id).Return([]model.EmailEvent{{ID: "ev-1", EmailID: &id, EventType: model.EventEmailDelivered}}, nil)

	rec := httptest.NewRecorder()
	h.Events(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+emailID+"/events", nil), "id", id))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []model.EmailEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "ev-1", body[0].ID)
}

// --- Provider ---

func TestEmailProvider_Success(t *testing.T) {
	h, _, emails, _, provider := newEmailHandler()
	e := sentEmail(emailID)
	emails.On("GetByID", emailID).Return(&e, nil)
	provider.On("GetEmail", "M").Return(&resend.Email{ID: "M", LastEvent: "delivered"}, nil)

	rec := httptest.NewRecorder()
	h.Provider(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+emailID+"/provider", nil), "id", emailID))

	require.Equal(t, http.StatusOK, rec.Code)
	var body resend.Email
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "delivered", body.LastEvent)
}

func TestEmailProvider_NoMessageID(t *testing.T) {
	h, _, emails, _, provider := newEmailHandler()
	e := sentEmail(emailID)
	e.Status = model.StatusPending
	e.MessageID = nil
	emails.On("GetByID", emailID).Return(&e, nil)

	rec := httptest.NewRecorder()
	h.Provider(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+emailID+"/provider", nil), "id", emailID))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	provider.AssertNotCalled(t, "GetEmail", mock.Anything)
}

func TestEmailProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found upstream", &resend.APIError{StatusCode: 404, Name: "not_found", Message: "Email not found"}, http.StatusNotFound},
		{"upstream failure", &resend.APIError{StatusCode: 500, Message: "internal"}, http.StatusBadGateway},
		{"unreachable", errors.New("resend API request: timeout"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, emails, _, provider := newEmailHandler()
			e := sentEmail(emailID)
			emails.On("GetByID", emailID).Return(&e, nil)
			provider.On("GetEmail", "M").Return(nil, tt.err)

			rec := httptest.NewRecorder()
			h.Provider(rec, withChiURLParam(newRequest(http.MethodGet, "/api/v1/emails/"+emailID+"/provider", nil), "id", emailID))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
