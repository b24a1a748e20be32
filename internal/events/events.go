// Package events carries change notifications for emails and webhook events
// to live views.
package events

import (
	"context"
	"strings"

	"github.com/edvin/mailtrack/internal/model"
)

// Topic constants. Subscribers may use NATS-style wildcards ("emails.*", ">").
const (
	TopicEmailCreated = "emails.created"
	TopicEmailUpdated = "emails.updated"
	TopicEventCreated = "events.created"
)

// Change kinds and operations, mirrored in the JSON the stream sends.
const (
	KindEmail = "email"
	KindEvent = "event"

	OpInsert = "insert"
	OpUpdate = "update"
)

// Change is the payload published on every topic.
type Change struct {
	Kind  string             `json:"kind"`
	Op    string             `json:"op"`
	Email *model.EmailRecord `json:"email,omitempty"`
	Event *model.EmailEvent  `json:"event,omitempty"`
}

func EmailCreated(e *model.EmailRecord) Change {
	return Change{Kind: KindEmail, Op: OpInsert, Email: e}
}

func EmailUpdated(e *model.EmailRecord) Change {
	return Change{Kind: KindEmail, Op: OpUpdate, Email: e}
}

func EventCreated(e *model.EmailEvent) Change {
	return Change{Kind: KindEvent, Op: OpInsert, Event: e}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Match reports whether a dot-separated subject matches pattern, where "*"
// matches exactly one token and a trailing ">" matches one or more.
func Match(pattern, subject string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return i == len(p)-1 && len(s) > i
		}
		if i >= len(s) {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}
