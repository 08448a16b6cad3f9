package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hookflo/internal/platform/config"
)

type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Text    string
}

type SlackMessage struct {
	WebhookURL string
	Channel    string
	Text       string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

type SlackSender interface {
	SendSlack(ctx context.Context, msg SlackMessage) error
}

// ResendSender delivers email through the Resend REST API.
type ResendSender struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendSender{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *ResendSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	if s.apiKey == "" {
		return fmt.Errorf("email provider is not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	body := map[string]interface{}{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	return postJSON(ctx, s.client, s.baseURL+"/emails", body, map[string]string{
		"Authorization": "Bearer " + s.apiKey,
	})
}

// SlackWebhookSender posts to Slack incoming-webhook URLs.
type SlackWebhookSender struct {
	client *http.Client
}

func NewSlackWebhookSender(cfg config.SlackConfig) *SlackWebhookSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackWebhookSender{client: &http.Client{Timeout: timeout}}
}

func (s *SlackWebhookSender) SendSlack(ctx context.Context, msg SlackMessage) error {
	if msg.WebhookURL == "" {
		return fmt.Errorf("slack webhook url is not configured")
	}

	body := map[string]interface{}{"text": msg.Text}
	if msg.Channel != "" {
		body["channel"] = msg.Channel
	}
	return postJSON(ctx, s.client, msg.WebhookURL, body, nil)
}

func postJSON(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
