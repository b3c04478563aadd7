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

type SlackConfig struct {
	WebhookURL string
}

func (c *SlackConfig) IsConfigured() bool {
	return c != nil && c.WebhookURL != ""
}

type SlackChannel struct {
	config *SlackConfig
	client *http.Client
}

func NewSlackChannel(config *SlackConfig) *SlackChannel {
	return &SlackChannel{
		config: config,
		client: &http.Client{},
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *SlackChannel) Send(ctx context.Context, entry *models.WaitlistEntry) error {
	message := slackMessage{
		Text: "New waitlist signup!",
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: formatSignupSummary(entry),
				},
			},
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack: webhook returned %s", resp.Status)
	}

	return nil
}

func formatSignupSummary(entry *models.WaitlistEntry) string {
	company := entry.Company
	if company == "" {
		company = "Not provided"
	}

	howHeard := entry.HowHeard
	if howHeard == "" {
		howHeard = "Not provided"
	}

	monthlyListings := "Not provided"
	if entry.MonthlyListings != nil {
		monthlyListings = fmt.Sprintf("%d", *entry.MonthlyListings)
	}

	return fmt.Sprintf(
		"*New VistaForge Waitlist Signup*\n\n*Email:* %s\n*Role:* %s\n*Company:* %s\n*Monthly Listings:* %s\n*How they heard:* %s",
		entry.Email, entry.Role, company, monthlyListings, howHeard,
	)
}
