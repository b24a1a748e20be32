package core

import "github.com/edvin/mailtrack/internal/model"

// Transition is the effect of one provider event type on an EmailRecord.
type Transition struct {
	Status         string
	StampDelivered bool // set delivered_at to the event timestamp
}

// transitions maps provider event types to record updates. Types not listed
// leave the record untouched. Note that email.sent also stamps delivered_at.
var transitions = map[string]Transition{
	model.EventEmailSent:            {Status: model.StatusSent, StampDelivered: true},
	model.EventEmailDelivered:       {Status: model.StatusDelivered, StampDelivered: true},
	model.EventEmailDeliveryDelayed: {Status: model.StatusDelayed},
	model.EventEmailComplained:      {Status: model.StatusFailed},
	model.EventEmailBounced:         {Status: model.StatusFailed},
}

// TransitionFor looks up the record update for an event type.
func TransitionFor(eventType string) (Transition, bool) {
	t, ok := transitions[eventType]
	return t, ok
}
