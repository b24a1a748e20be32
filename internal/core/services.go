package core

import "github.com/edvin/mailtrack/internal/events"

type Services struct {
	Emails   *EmailStore
	Events   *EventStore
	Sender   *Sender
	Receiver *Receiver
}

func NewServices(db DB, mailer Mailer, pub events.Publisher, identity Identity) *Services {
	emails := NewEmailStore(db)
	evts := NewEventStore(db)
	return &Services{
		Emails:   emails,
		Events:   evts,
		Sender:   NewSender(emails, mailer, pub, identity),
		Receiver: NewReceiver(emails, evts, DefaultResolvers(emails), pub),
	}
}
