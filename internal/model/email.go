package model

import "time"

type EmailRecord struct {
	ID           string     `json:"id" db:"id"`
	Recipient    string     `json:"to_email" db:"to_email"`
	Subject      string     `json:"subject" db:"subject"`
	SentAt       time.Time  `json:"sent_at" db:"sent_at"`
	Status       string     `json:"status" db:"status"`
	MessageID    *string    `json:"message_id,omitempty" db:"message_id"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
}
