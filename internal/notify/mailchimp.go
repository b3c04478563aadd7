package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vistaforge/waitlist-api/internal/models"
)

// MailchimpConfig carries the list-subscription credentials. The channel is
// active only when both APIKey and ListID are present.
type MailchimpConfig struct {
	APIKey       string
	ListID       string
	ServerPrefix string // e.g. "us1"; the datacenter suffix of the API key
	BaseURL      string // overrides the mailchimp API host, used in tests
}

func (c *MailchimpConfig) IsConfigured() bool {
	return c != nil && c.APIKey != "" && c.ListID != ""
}

type MailchimpChannel struct {
	config *MailchimpConfig
	client *http.Client
}

func NewMailchimpChannel(config *MailchimpConfig) *MailchimpChannel {
	return &MailchimpChannel{
		config: config,
		client: &http.Client{},
	}
}

func (m *MailchimpChannel) Name() string {
	return "mailchimp"
}

type mailchimpMember struct {
	EmailAddress string                 `json:"email_address"`
	Status       string                 `json:"status"`
	MergeFields  map[string]interface{} `json:"merge_fields"`
}

func (m *MailchimpChannel) Send(ctx context.Context, entry *models.WaitlistEntry) error {
	monthlyListings := 0
	if entry.MonthlyListings != nil {
		monthlyListings = *entry.MonthlyListings
	}

	member := mailchimpMember{
		EmailAddress: entry.Email,
		Status:       "subscribed",
		MergeFields: map[string]interface{}{
			"ROLE":             entry.Role,
			"COMPANY":          entry.Company,
			"MONTHLY_LISTINGS": monthlyListings,
			"HOW_HEARD":        entry.HowHeard,
		},
	}

	body, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("mailchimp: marshal member: %w", err)
	}

	url := fmt.Sprintf("%s/3.0/lists/%s/members", m.baseURL(), m.config.ListID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailchimp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailchimp: subscribe request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mailchimp: subscribe returned %s", resp.Status)
	}

	return nil
}

func (m *MailchimpChannel) baseURL() string {
	if m.config.BaseURL != "" {
		return m.config.BaseURL
	}

	prefix := m.config.ServerPrefix
	if prefix == "" {
		prefix = "us1"
	}
	return fmt.Sprintf("https://%s.api.mailchimp.com", prefix)
}
