package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/mailtrack/internal/model"
)

const emailColumns = `id, to_email, subject, sent_at, status, message_id, delivered_at, error_message`

// EmailRepository is the Email Store capability used by Sender and Receiver.
// Lookups that find nothing return (nil, nil); GetByID returns ErrNotFound.
type EmailRepository interface {
	Create(ctx context.Context, e *model.EmailRecord) error
	GetByID(ctx context.Context, id string) (*model.EmailRecord, error)
	MarkSent(ctx context.Context, id, messageID string) (*model.EmailRecord, error)
	MarkFailed(ctx context.Context, id, message string) (*model.EmailRecord, error)
	ApplyTransition(ctx context.Context, id, status string, deliveredAt *time.Time) (*model.EmailRecord, error)
	FindByMessageAndRecipient(ctx context.Context, messageID, recipient string) (*model.EmailRecord, error)
	LatestByRecipient(ctx context.Context, recipient string) (*model.EmailRecord, error)
	List(ctx context.Context, limit int, cursor string) ([]model.EmailRecord, bool, error)
}

type EmailStore struct {
	db DB
}

func NewEmailStore(db DB) *EmailStore {
	return &EmailStore{db: db}
}

func scanEmail(row pgx.Row, e *model.EmailRecord) error {
	return row.Scan(&e.ID, &e.Recipient, &e.Subject, &e.SentAt, &e.Status, &e.MessageID, &e.DeliveredAt, &e.ErrorMessage)
}

// queryOne runs a single-row query; no row yields (nil, nil).
func (s *EmailStore) queryOne(ctx context.Context, sql string, args ...any) (*model.EmailRecord, error) {
	var e model.EmailRecord
	if err := scanEmail(s.db.QueryRow(ctx, sql, args...), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (s *EmailStore) Create(ctx context.Context, e *model.EmailRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO emails (id, to_email, subject, sent_at, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Recipient, e.Subject, e.SentAt, e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

func (s *EmailStore) GetByID(ctx context.Context, id string) (*model.EmailRecord, error) {
	e, err := s.queryOne(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get email %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("get email %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *EmailStore) MarkSent(ctx context.Context, id, messageID string) (*model.EmailRecord, error) {
	return s.update(ctx, id,
		`UPDATE emails SET status = $1, message_id = $2, error_message = NULL
		 WHERE id = $3 RETURNING `+emailColumns,
		model.StatusSent, messageID, id)
}

func (s *EmailStore) MarkFailed(ctx context.Context, id, message string) (*model.EmailRecord, error) {
	return s.update(ctx, id,
		`UPDATE emails SET status = $1, error_message = $2
		 WHERE id = $3 RETURNING `+emailColumns,
		model.StatusFailed, message, id)
}

// ApplyTransition sets status and, when deliveredAt is non-nil, delivered_at.
func (s *EmailStore) ApplyTransition(ctx context.Context, id, status string, deliveredAt *time.Time) (*model.EmailRecord, error) {
	return s.update(ctx, id,
		`UPDATE emails SET status = $1, delivered_at = COALESCE($2, delivered_at)
		 WHERE id = $3 RETURNING `+emailColumns,
		status, deliveredAt, id)
}

func (s *EmailStore) update(ctx context.Context, id, sql string, args ...any) (*model.EmailRecord, error) {
	e, err := s.queryOne(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update email %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("update email %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *EmailStore) FindByMessageAndRecipient(ctx context.Context, messageID, recipient string) (*model.EmailRecord, error) {
	e, err := s.queryOne(ctx,
		`SELECT `+emailColumns+` FROM emails
		 WHERE message_id = $1 AND to_email = $2
		 ORDER BY sent_at DESC LIMIT 1`, messageID, recipient)
	if err != nil {
		return nil, fmt.Errorf("find email by message %s: %w", messageID, err)
	}
	return e, nil
}

func (s *EmailStore) LatestByRecipient(ctx context.Context, recipient string) (*model.EmailRecord, error) {
	e, err := s.queryOne(ctx,
		`SELECT `+emailColumns+` FROM emails
		 WHERE to_email = $1
		 ORDER BY sent_at DESC, id DESC LIMIT 1`, recipient)
	if err != nil {
		return nil, fmt.Errorf("find latest email for %s: %w", recipient, err)
	}
	return e, nil
}

// List returns emails newest first. cursor is the id of the last email of the
// previous page.
func (s *EmailStore) List(ctx context.Context, limit int, cursor string) ([]model.EmailRecord, bool, error) {
	query := `SELECT ` + emailColumns + ` FROM emails`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE (sent_at, id) < (SELECT sent_at, id FROM emails WHERE id = $%d)`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY sent_at DESC, id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var emails []model.EmailRecord
	for rows.Next() {
		var e model.EmailRecord
		if err := scanEmail(rows, &e); err != nil {
			return nil, false, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate emails: %w", err)
	}

	hasMore := len(emails) > limit
	if hasMore {
		emails = emails[:limit]
	}
	return emails, hasMore, nil
}
