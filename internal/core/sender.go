package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/events"
	"github.com/edvin/mailtrack/internal/htmltext"
	"github.com/edvin/mailtrack/internal/model"
	"github.com/edvin/mailtrack/internal/platform"
	"github.com/edvin/mailtrack/internal/resend"
)

// CorrelationTag is the provider tag carrying the EmailRecord id.
const CorrelationTag = "email_id"

// Mailer is the provider send operation.
type Mailer interface {
	SendEmail(ctx context.Context, req resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type SendRequest struct {
	To      string
	Subject string
	HTML    string
}

type SendResult struct {
	Email    *model.EmailRecord
	Provider *resend.SendEmailResponse
}

// Identity is the from/reply-to pair used for every send.
type Identity struct {
	From    string
	ReplyTo string
}

type Sender struct {
	emails   EmailRepository
	mailer   Mailer
	pub      events.Publisher
	identity Identity
	now      func() time.Time
}

func NewSender(emails EmailRepository, mailer Mailer, pub events.Publisher, identity Identity) *Sender {
	return &Sender{
		emails:   emails,
		mailer:   mailer,
		pub:      pub,
		identity: identity,
		now:      time.Now,
	}
}

// Send records a pending email, submits it to the provider, and records the
// outcome. On provider failure the returned result still carries the failed
// record alongside a *ProviderError.
func (s *Sender) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	logger := zerolog.Ctx(ctx)

	var missing []string
	if strings.TrimSpace(req.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(req.HTML) == "" {
		missing = append(missing, "html")
	}
	if len(missing) > 0 {
		return nil, validationError("missing required fields: %s", strings.Join(missing, ", "))
	}

	text, err := htmltext.Convert(req.HTML)
	if err != nil {
		logger.Warn().Err(err).Msg("plain-text conversion failed, sending HTML only")
		text = ""
	}

	email := &model.EmailRecord{
		ID:        platform.NewID(),
		Recipient: req.To,
		Subject:   req.Subject,
		SentAt:    s.now().UTC(),
		Status:    model.StatusPending,
	}
	if err := s.emails.Create(ctx, email); err != nil {
		return nil, &StorageError{Op: "save email metadata", Err: err}
	}
	s.publish(ctx, events.TopicEmailCreated, events.EmailCreated(email))

	sendReq := resend.SendEmailRequest{
		From:    s.identity.From,
		To:      []string{req.To},
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    text,
		ReplyTo: s.identity.ReplyTo,
		Tags:    []resend.Tag{{Name: CorrelationTag, Value: email.ID}},
	}

	resp, sendErr := s.mailer.SendEmail(ctx, sendReq)

	// The provider outcome is recorded even after the caller cancels.
	ctx = context.WithoutCancel(ctx)

	if sendErr != nil {
		perr := providerError(sendErr)
		logger.Error().Err(sendErr).Str("email_id", email.ID).Msg("provider rejected send")

		failed, err := s.emails.MarkFailed(ctx, email.ID, perr.Message)
		if err != nil {
			logger.Error().Err(err).Str("email_id", email.ID).Msg("failed to mark email as failed")
			email.Status = model.StatusFailed
			return &SendResult{Email: email}, perr
		}
		s.publish(ctx, events.TopicEmailUpdated, events.EmailUpdated(failed))
		return &SendResult{Email: failed}, perr
	}

	sent, err := s.emails.MarkSent(ctx, email.ID, resp.ID)
	if err != nil {
		logger.Error().Err(err).Str("email_id", email.ID).Str("message_id", resp.ID).Msg("failed to mark email as sent")
		return &SendResult{Email: email, Provider: resp}, &StorageError{Op: "update email status", Err: err}
	}
	s.publish(ctx, events.TopicEmailUpdated, events.EmailUpdated(sent))

	logger.Info().Str("email_id", sent.ID).Str("message_id", resp.ID).Msg("email sent")
	return &SendResult{Email: sent, Provider: resp}, nil
}

func (s *Sender) publish(ctx context.Context, topic string, change events.Change) {
	if err := s.pub.Publish(ctx, topic, change); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("failed to publish change")
	}
}

func providerError(err error) *ProviderError {
	var apiErr *resend.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return &ProviderError{Message: err.Error(), Err: err}
}
