package core

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/edvin/mailtrack/internal/model"
)

// Lookup holds the correlation keys extracted from a webhook event.
type Lookup struct {
	Recipient string
	MessageID string
	// TaggedEmailID is the email_id tag the Sender attaches to every send.
	TaggedEmailID string
}

// Resolver is one strategy for matching an event to an EmailRecord. A miss
// returns (nil, nil).
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, l Lookup) (*model.EmailRecord, error)
}

// DefaultResolvers returns the strategies in tie-break order: exact
// (message_id, recipient), then the correlation tag, then the most recent
// email to the recipient.
//
// The tag strategy sits between the two recipient strategies, so an event
// carrying our email_id tag never resolves to a newer, different email sent
// to the same address. Untagged events see the plain two-step order because
// TagResolver misses without touching the store.
func DefaultResolvers(emails EmailRepository) []Resolver {
	return []Resolver{
		MessageRecipientResolver{emails: emails},
		TagResolver{emails: emails},
		LatestRecipientResolver{emails: emails},
	}
}

type MessageRecipientResolver struct {
	emails EmailRepository
}

func (MessageRecipientResolver) Name() string { return "message_recipient" }

func (r MessageRecipientResolver) Resolve(ctx context.Context, l Lookup) (*model.EmailRecord, error) {
	if l.MessageID == "" || l.Recipient == "" {
		return nil, nil
	}
	return r.emails.FindByMessageAndRecipient(ctx, l.MessageID, l.Recipient)
}

// TagResolver matches on the email_id tag. A tagged record addressed to a
// different recipient is ignored.
type TagResolver struct {
	emails EmailRepository
}

func (TagResolver) Name() string { return "tag" }

func (r TagResolver) Resolve(ctx context.Context, l Lookup) (*model.EmailRecord, error) {
	if l.TaggedEmailID == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(l.TaggedEmailID); err != nil {
		return nil, nil
	}
	e, err := r.emails.GetByID(ctx, l.TaggedEmailID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if l.Recipient != "" && e.Recipient != l.Recipient {
		return nil, nil
	}
	return e, nil
}

type LatestRecipientResolver struct {
	emails EmailRepository
}

func (LatestRecipientResolver) Name() string { return "latest_recipient" }

func (r LatestRecipientResolver) Resolve(ctx context.Context, l Lookup) (*model.EmailRecord, error) {
	if l.Recipient == "" {
		return nil, nil
	}
	return r.emails.LatestByRecipient(ctx, l.Recipient)
}
