package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdk "github.com/resend/resend-go/v2"
)

// Client adapts the resend-go SDK to mailtrack's provider types. Non-2xx
// responses surface as *APIError carrying the transport status.
type Client struct {
	api *sdk.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse resend API URL: %w", err)
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &captureTransport{base: http.DefaultTransport},
	}
	api := sdk.NewCustomClient(httpClient, apiKey)
	api.BaseURL = base
	return &Client{api: api}, nil
}

// SendEmail submits one email. A rejected send returns *APIError.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	params := &sdk.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	}
	for _, t := range req.Tags {
		params.Tags = append(params.Tags, sdk.Tag{Name: t.Name, Value: t.Value})
	}

	ctx, rec := withCapture(ctx)
	sent, err := c.api.Emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, rec.err(err)
	}
	if sent == nil || sent.Id == "" {
		return nil, fmt.Errorf("resend send: response missing email id")
	}
	return &SendEmailResponse{ID: sent.Id}, nil
}

// GetEmail fetches a sent email by its provider id.
func (c *Client) GetEmail(ctx context.Context, id string) (*Email, error) {
	ctx, rec := withCapture(ctx)
	e, err := c.api.Emails.GetWithContext(ctx, url.PathEscape(id))
	if err != nil {
		return nil, rec.err(err)
	}
	return &Email{
		ID:        e.Id,
		Object:    e.Object,
		From:      e.From,
		To:        e.To,
		Subject:   e.Subject,
		CreatedAt: e.CreatedAt,
		LastEvent: e.LastEvent,
	}, nil
}

// capture records the status and error body of the response to one SDK
// call, which the SDK otherwise flattens into a message string.
type capture struct {
	status int
	body   []byte
}

type captureKey struct{}

func withCapture(ctx context.Context) (context.Context, *capture) {
	c := &capture{}
	return context.WithValue(ctx, captureKey{}, c), c
}

// err converts an SDK error. No recorded status means the request never got
// a response.
func (c *capture) err(err error) error {
	if c.status == 0 {
		return fmt.Errorf("resend API request: %w", err)
	}
	if c.status < 300 {
		return fmt.Errorf("resend API response: %w", err)
	}

	apiErr := &APIError{}
	if jerr := json.Unmarshal(c.body, apiErr); jerr != nil || apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(c.body))
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimPrefix(err.Error(), "[ERROR]: ")
	}
	// The body's statusCode may disagree with the transport status; trust the transport.
	apiErr.StatusCode = c.status
	return apiErr
}

type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c, ok := req.Context().Value(captureKey{}).(*capture)
	if !ok {
		return resp, nil
	}
	c.status = resp.StatusCode
	if resp.StatusCode >= 300 {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		if rerr != nil {
			return nil, rerr
		}
		c.body = body
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}
