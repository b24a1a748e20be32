package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/mailtrack/internal/model"
)

const eventColumns = `id, email_id, event_type, event_timestamp, event_payload, recipient, message_id, received_at`

// EventRepository is the append-only Event Store capability.
type EventRepository interface {
	Create(ctx context.Context, e *model.EmailEvent) error
	ListByEmail(ctx context.Context, emailID string) ([]model.EmailEvent, error)
	List(ctx context.Context, limit int, cursor string) ([]model.EmailEvent, bool, error)
}

type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(row pgx.Row, e *model.EmailEvent) error {
	return row.Scan(&e.ID, &e.EmailID, &e.EventType, &e.EventTimestamp, &e.EventPayload, &e.Recipient, &e.MessageID, &e.ReceivedAt)
}

func (s *EventStore) Create(ctx context.Context, e *model.EmailEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO email_events (id, email_id, event_type, event_timestamp, event_payload, recipient, message_id, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.EmailID, e.EventType, e.EventTimestamp, e.EventPayload, e.Recipient, e.MessageID, e.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert email event: %w", err)
	}
	return nil
}

// ListByEmail returns the events linked to one email, oldest first.
func (s *EventStore) ListByEmail(ctx context.Context, emailID string) ([]model.EmailEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+eventColumns+` FROM email_events
		 WHERE email_id = $1
		 ORDER BY event_timestamp, received_at`, emailID)
	if err != nil {
		return nil, fmt.Errorf("list events for email %s: %w", emailID, err)
	}
	defer rows.Close()

	var events []model.EmailEvent
	for rows.Next() {
		var e model.EmailEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan email event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// List returns events newest first by event timestamp.
func (s *EventStore) List(ctx context.Context, limit int, cursor string) ([]model.EmailEvent, bool, error) {
	query := `SELECT ` + eventColumns + ` FROM email_events`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE (event_timestamp, id) < (SELECT event_timestamp, id FROM email_events WHERE id = $%d)`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY event_timestamp DESC, id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list email events: %w", err)
	}
	defer rows.Close()

	var events []model.EmailEvent
	for rows.Next() {
		var e model.EmailEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, false, fmt.Errorf("scan email event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate email events: %w", err)
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}
	return events, hasMore, nil
}
