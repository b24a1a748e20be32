package core

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/mailtrack/internal/events"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/resend"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows, yielding one row per scan function.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Row scanners ----------

// emailScan fills the destinations of an emails row from e.
func emailScan(e model.EmailRecord) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = e.ID
		*(dest[1].(*string)) = e.Recipient
		*(dest[2].(*string)) = e.Subject
		*(dest[3].(*time.Time)) = e.SentAt
		*(dest[4].(*string)) = e.Status
		*(dest[5].(**string)) = e.MessageID
		*(dest[6].(**time.Time)) = e.DeliveredAt
		*(dest[7].(**string)) = e.ErrorMessage
		return nil
	}
}

// eventScan fills the destinations of an email_events row from e.
func eventScan(e model.EmailEvent) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = e.ID
		*(dest[1].(**string)) = e.EmailID
		*(dest[2].(*string)) = e.EventType
		*(dest[3].(*time.Time)) = e.EventTimestamp
		*(dest[4].(*json.RawMessage)) = e.EventPayload
		*(dest[5].(**string)) = e.Recipient
		*(dest[6].(**string)) = e.MessageID
		*(dest[7].(*time.Time)) = e.ReceivedAt
		return nil
	}
}

func noRow() *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

// ---------- Mock repositories ----------

type mockEmails struct {
	mock.Mock
}

func (m *mockEmails) record(args mock.Arguments) (*model.EmailRecord, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailRecord), args.Error(1)
}

func (m *mockEmails) Create(ctx context.Context, e *model.EmailRecord) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEmails) GetByID(ctx context.Context, id string) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, id))
}

func (m *mockEmails) MarkSent(ctx context.Context, id, messageID string) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, id, messageID))
}

func (m *mockEmails) MarkFailed(ctx context.Context, id, message string) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, id, message))
}

func (m *mockEmails) ApplyTransition(ctx context.Context, id, status string, deliveredAt *time.Time) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, id, status, deliveredAt))
}

func (m *mockEmails) FindByMessageAndRecipient(ctx context.Context, messageID, recipient string) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, messageID, recipient))
}

func (m *mockEmails) LatestByRecipient(ctx context.Context, recipient string) (*model.EmailRecord, error) {
	return m.record(m.Called(ctx, recipient))
}

func (m *mockEmails) List(ctx context.Context, limit int, cursor string) ([]model.EmailRecord, bool, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]model.EmailRecord), args.Bool(1), args.Error(2)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) Create(ctx context.Context, e *model.EmailEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEvents) ListByEmail(ctx context.Context, emailID string) ([]model.EmailEvent, error) {
	args := m.Called(ctx, emailID)
	return args.Get(0).([]model.EmailEvent), args.Error(1)
}

func (m *mockEvents) List(ctx context.Context, limit int, cursor string) ([]model.EmailEvent, bool, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]model.EmailEvent), args.Bool(1), args.Error(2)
}

// ---------- Mock mailer ----------

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEmail(ctx context.Context, req resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

// ---------- Recording publisher ----------

type published struct {
	Topic  string
	Change events.Change
}

// recordingPublisher captures every published change.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{Topic: topic, Change: event.(events.Change)})
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Topic)
	}
	return out
}

func strPtr(s string) *string { return &s }
