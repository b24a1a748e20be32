package resend

import "fmt"

// Tag is a name/value pair attached to a sent email. Tags are echoed back in
// webhook event payloads under data.tags.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendEmailRequest is one outbound email.
type SendEmailRequest struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Tags    []Tag
}

// SendEmailResponse is the provider's acknowledgement of an accepted send.
type SendEmailResponse struct {
	ID string `json:"id"`
}

// Email is the provider's view of a previously sent email.
type Email struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	CreatedAt string   `json:"created_at"`
	LastEvent string   `json:"last_event"`
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resend: %s (status %d): %s", e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("resend: status %d: %s", e.StatusCode, e.Message)
}
