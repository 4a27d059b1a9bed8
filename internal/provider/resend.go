package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	resendDefaultEndpoint = "https://api.resend.com"
	resendSendPath        = "/emails"
	resendDomainsPath     = "/domains"
)

// Resend implements the Provider interface for the Resend API.
type Resend struct {
	apiKey   string
	endpoint string
	from     string
	fromName string
	client   HTTPClient
}

// ResendConfig holds the settings for a Resend provider.
type ResendConfig struct {
	APIKey      string
	Endpoint    string
	FromAddress string
	FromName    string
}

// NewResend creates a Resend provider from the given configuration.
func NewResend(cfg ResendConfig, client HTTPClient) *Resend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = resendDefaultEndpoint
	}
	return &Resend{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
		client:   client,
	}
}

func (r *Resend) GetName() string { return "resend" }

// Send delivers a message via the Resend send API.
func (r *Resend) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	payload := r.buildPayload(msg)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("resend: marshal request: %w", err)
	}

	resp, err := r.client.Do(&HTTPRequest{
		Method: "POST",
		URL:    r.endpoint + resendSendPath,
		Headers: map[string]string{
			"Authorization": "Bearer " + r.apiKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("resend: send request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var sent resendSendResponse
		_ = json.Unmarshal(resp.Body, &sent)
		return &DeliveryResult{
			ProviderMessageID: sent.ID,
			Status:            StatusSent,
			Timestamp:         time.Now(),
			Metadata: map[string]string{
				"status_code": fmt.Sprintf("%d", resp.StatusCode),
			},
		}, nil
	}

	return nil, ClassifyHTTPError("resend", resp.StatusCode, string(resp.Body))
}

// HealthCheck verifies Resend API connectivity by listing domains.
func (r *Resend) HealthCheck(ctx context.Context) error {
	resp, err := r.client.Do(&HTTPRequest{
		Method: "GET",
		URL:    r.endpoint + resendDomainsPath,
		Headers: map[string]string{
			"Authorization": "Bearer " + r.apiKey,
		},
	})
	if err != nil {
		return fmt.Errorf("resend: health check request: %w", err)
	}

	if resp.StatusCode != 200 {
		return fmt.Errorf("resend: health check returned status %d", resp.StatusCode)
	}
	return nil
}

// resendPayload matches the Resend send JSON schema.
type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

func (r *Resend) buildPayload(msg *Message) resendPayload {
	from := msg.From
	fromName := msg.FromName
	if from == "" {
		from = r.from
		fromName = r.fromName
	}

	return resendPayload{
		From:    formatAddress(from, fromName),
		To:      []string{formatAddress(msg.To, msg.ToName)},
		Subject: msg.Subject,
		Text:    msg.Body,
		ReplyTo: formatAddress(msg.ReplyTo, msg.ReplyToName),
	}
}

// formatAddress renders "Name <addr>" when a display name is present, or the
// bare address otherwise. An empty address yields an empty string so optional
// fields can be omitted.
func formatAddress(addr, name string) string {
	if addr == "" {
		return ""
	}
	if name == "" {
		return addr
	}
	return name + " <" + addr + ">"
}
