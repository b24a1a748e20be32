package platform

import "github.com/google/uuid"

// NewID returns a random UUID used as the primary key for emails and events.
func NewID() string {
	return uuid.New().String()
}
