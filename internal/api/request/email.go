package request

// SendEmail is the body of the send endpoint.
type SendEmail struct {
	To      string `json:"to" validate:"notblank,max=320"`
	Subject string `json:"subject" validate:"notblank,max=998"`
	HTML    string `json:"html" validate:"notblank"`
}
