package core

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/events"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/platform"
)

// WebhookEvent is an inbound provider callback.
type WebhookEvent struct {
	Type      string          `json:"type"`
	CreatedAt string          `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

type ReceiveResult struct {
	Event *model.EmailEvent
	// Email is the updated record, nil when unresolved or unchanged.
	Email *model.EmailRecord
	// ResolvedBy names the matching resolver, empty on a miss.
	ResolvedBy string
}

type Receiver struct {
	emails    EmailRepository
	events    EventRepository
	resolvers []Resolver
	pub       events.Publisher
	now       func() time.Time
}

func NewReceiver(emails EmailRepository, evts EventRepository, resolvers []Resolver, pub events.Publisher) *Receiver {
	return &Receiver{
		emails:    emails,
		events:    evts,
		resolvers: resolvers,
		pub:       pub,
		now:       time.Now,
	}
}

// Receive stores evt and applies its status transition to the matched
// record. Only a failure to store the event is returned as an error; a failed
// status update is logged.
func (r *Receiver) Receive(ctx context.Context, evt WebhookEvent) (*ReceiveResult, error) {
	logger := zerolog.Ctx(ctx)

	if evt.Type == "" {
		return nil, validationError("missing event type")
	}
	data := bytes.TrimSpace(evt.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, validationError("missing event data")
	}
	lookup, err := parseLookup(data)
	if err != nil {
		return nil, err
	}

	receivedAt := r.now().UTC()
	timestamp := receivedAt
	if evt.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, evt.CreatedAt); err == nil {
			timestamp = t.UTC()
		} else {
			logger.Warn().Str("created_at", evt.CreatedAt).Msg("unparseable event timestamp, using receipt time")
		}
	}

	email, resolvedBy := r.resolve(ctx, lookup)

	stored := &model.EmailEvent{
		ID:             platform.NewID(),
		EventType:      evt.Type,
		EventTimestamp: timestamp,
		EventPayload:   json.RawMessage(data),
		Recipient:      optional(lookup.Recipient),
		MessageID:      optional(lookup.MessageID),
		ReceivedAt:     receivedAt,
	}
	if email != nil {
		stored.EmailID = &email.ID
	}

	if err := r.events.Create(ctx, stored); err != nil {
		logger.Error().Err(err).Str("event_type", evt.Type).Msg("failed to store webhook event")
		return nil, &StorageError{Op: "store event", Err: err}
	}
	r.publish(ctx, events.TopicEventCreated, events.EventCreated(stored))

	result := &ReceiveResult{Event: stored, ResolvedBy: resolvedBy}
	if email == nil {
		logger.Info().Str("event_type", evt.Type).Str("recipient", lookup.Recipient).Msg("webhook event stored without matching email")
		return result, nil
	}

	t, ok := TransitionFor(evt.Type)
	if !ok {
		return result, nil
	}
	var deliveredAt *time.Time
	if t.StampDelivered {
		deliveredAt = &timestamp
	}

	updated, err := r.emails.ApplyTransition(ctx, email.ID, t.Status, deliveredAt)
	if err != nil {
		logger.Error().Err(err).Str("email_id", email.ID).Str("status", t.Status).Msg("failed to update email status")
		return result, nil
	}
	result.Email = updated
	r.publish(ctx, events.TopicEmailUpdated, events.EmailUpdated(updated))

	logger.Info().Str("email_id", email.ID).Str("event_type", evt.Type).Str("status", updated.Status).Msg("email status updated")
	return result, nil
}

// resolve runs the resolvers in order. A resolver error counts as a miss.
func (r *Receiver) resolve(ctx context.Context, l Lookup) (*model.EmailRecord, string) {
	for _, res := range r.resolvers {
		email, err := res.Resolve(ctx, l)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("resolver", res.Name()).Msg("resolver lookup failed")
			continue
		}
		if email != nil {
			return email, res.Name()
		}
	}
	return nil, ""
}

func (r *Receiver) publish(ctx context.Context, topic string, change events.Change) {
	if err := r.pub.Publish(ctx, topic, change); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("failed to publish change")
	}
}

// parseLookup extracts correlation keys from the event data object. Resend
// sends recipients as "to" and its message id as "email_id"; those are
// fallbacks for "recipient" and "message_id". Fields of unexpected types are
// ignored.
func parseLookup(data []byte) (Lookup, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Lookup{}, validationError("event data must be an object")
	}

	l := Lookup{
		Recipient: stringField(obj["recipient"]),
		MessageID: stringField(obj["message_id"]),
	}
	if l.Recipient == "" {
		l.Recipient = firstRecipient(obj["to"])
	}
	if l.MessageID == "" {
		l.MessageID = stringField(obj["email_id"])
	}
	l.TaggedEmailID = tagValue(obj["tags"], CorrelationTag)
	return l, nil
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func firstRecipient(raw json.RawMessage) string {
	var list []string
	if len(raw) > 0 && json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return stringField(raw)
}

// tagValue reads a tag from either the object form ({"name": "value"}) or
// the list form ([{"name": ..., "value": ...}]).
func tagValue(raw json.RawMessage, name string) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj[name]
	}
	var list []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, t := range list {
			if t.Name == name {
				return t.Value
			}
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
