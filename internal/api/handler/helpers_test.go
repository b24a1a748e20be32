package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/resend"
)

const (
	emailID   = "7d3f2c1e-5b4a-4e8f-9a21-0c6b1d2e3f40"
	missingID = "00000000-0000-4000-8000-000000000000"
	cursorID  = "9a8b7c6d-1e2f-4a3b-8c4d-5e6f7a8b9c0d"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

var testSentAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func sentEmail(id string) model.EmailRecord {
	return model.EmailRecord{
		ID:        id,
		Recipient: "a@example.com",
		Subject:   "Hi",
		SentAt:    testSentAt,
		Status:    model.StatusSent,
		MessageID: strPtr("M"),
	}
}

// ---------- Fakes ----------

type fakeSender struct{ mock.Mock }

func (f *fakeSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	args := f.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.SendResult), args.Error(1)
}

type fakeReceiver struct{ mock.Mock }

func (f *fakeReceiver) Receive(ctx context.Context, evt core.WebhookEvent) (*core.ReceiveResult, error) {
	args := f.Called(evt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.ReceiveResult), args.Error(1)
}

type fakeEmails struct{ mock.Mock }

func (f *fakeEmails) GetByID(ctx context.Context, id string) (*model.EmailRecord, error) {
	args := f.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailRecord), args.Error(1)
}

func (f *fakeEmails) List(ctx context.Context, limit int, cursor string) ([]model.EmailRecord, bool, error) {
	args := f.Called(limit, cursor)
	items, _ := args.Get(0).([]model.EmailRecord)
	return items, args.Bool(1), args.Error(2)
}

type fakeEvents struct{ mock.Mock }

func (f *fakeEvents) ListByEmail(ctx context.Context, emailID string) ([]model.EmailEvent, error) {
	args := f.Called(emailID)
	items, _ := args.Get(0).([]model.EmailEvent)
	return items, args.Error(1)
}

func (f *fakeEvents) List(ctx context.Context, limit int, cursor string) ([]model.EmailEvent, bool, error) {
	args := f.Called(limit, cursor)
	items, _ := args.Get(0).([]model.EmailEvent)
	return items, args.Bool(1), args.Error(2)
}

type fakeProvider struct{ mock.Mock }

func (f *fakeProvider) GetEmail(ctx context.Context, id string) (*resend.Email, error) {
	args := f.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.Email), args.Error(1)
}
