package notifications

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hookflo/internal/engine/templates"
	"hookflo/internal/platform/models"
)

type LogWriter interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
}

type TemplateResolver interface {
	Resolve(ctx context.Context, userID, templateID string) (templates.Template, error)
}

// ChannelResult is the outcome of one channel's delivery attempt.
type ChannelResult struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// Report maps channel name to its result. Channels that are disabled are absent.
type Report map[string]ChannelResult

// Failed reports whether any attempted channel failed.
func (r Report) Failed() bool {
	for _, res := range r {
		if !res.Sent {
			return true
		}
	}
	return false
}

// Dispatcher renders a webhook's templates and fans the event out to its
// enabled channels. Failures are reported, never retried.
type Dispatcher struct {
	email       EmailSender
	slack       SlackSender
	templates   TemplateResolver
	logs        LogWriter
	defaultFrom string
}

func NewDispatcher(email EmailSender, slack SlackSender, tmpl TemplateResolver, logs LogWriter, defaultFrom string) *Dispatcher {
	return &Dispatcher{
		email:       email,
		slack:       slack,
		templates:   tmpl,
		logs:        logs,
		defaultFrom: defaultFrom,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, webhook *models.Webhook, platform string, event map[string]interface{}) Report {
	report := Report{}
	var mu sync.Mutex
	record := func(channel string, err error) {
		res := ChannelResult{Sent: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		mu.Lock()
		report[channel] = res
		mu.Unlock()
		d.writeLog(ctx, webhook, platform, channel, err)
	}

	data := templates.Data{Platform: platform, Webhook: webhook.Name, Event: event}
	cfg := webhook.NotificationConfig

	var g errgroup.Group
	if webhook.NotifyEmail && cfg.Email != nil {
		g.Go(func() error {
			record(models.ChannelEmail, d.sendEmail(ctx, webhook.UserID, platform, cfg.Email, data))
			return nil
		})
	}
	if webhook.NotifySlack && cfg.Slack != nil {
		g.Go(func() error {
			record(models.ChannelSlack, d.sendSlack(ctx, webhook.UserID, platform, cfg.Slack, data))
			return nil
		})
	}
	g.Wait()

	return report
}

func (d *Dispatcher) render(ctx context.Context, userID, platform, templateID string, data templates.Data) (*templates.Rendered, error) {
	if templateID == "" {
		templateID = templates.DefaultFor(platform)
	}
	tmpl, err := d.templates.Resolve(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	return tmpl.Render(data)
}

func (d *Dispatcher) sendEmail(ctx context.Context, userID, platform string, cfg *models.EmailNotificationConfig, data templates.Data) error {
	rendered, err := d.render(ctx, userID, platform, cfg.TemplateID, data)
	if err != nil {
		return err
	}
	from := cfg.From
	if from == "" {
		from = d.defaultFrom
	}
	return d.email.SendEmail(ctx, EmailMessage{
		From:    from,
		To:      cfg.To,
		Subject: rendered.Subject,
		Text:    rendered.Body,
	})
}

func (d *Dispatcher) sendSlack(ctx context.Context, userID, platform string, cfg *models.SlackNotificationConfig, data templates.Data) error {
	rendered, err := d.render(ctx, userID, platform, cfg.TemplateID, data)
	if err != nil {
		return err
	}
	return d.slack.SendSlack(ctx, SlackMessage{
		WebhookURL: cfg.WebhookURL,
		Channel:    cfg.Channel,
		Text:       rendered.SlackText,
	})
}

func (d *Dispatcher) writeLog(ctx context.Context, webhook *models.Webhook, platform, channel string, sendErr error) {
	if d.logs == nil {
		return
	}
	entry := &models.NotificationLog{
		WebhookID: webhook.ID,
		UserID:    webhook.UserID,
		Platform:  platform,
		Channel:   channel,
		Status:    models.DeliveryStatusSent,
	}
	if sendErr != nil {
		entry.Status = models.DeliveryStatusFailed
		entry.Error = sendErr.Error()
	}
	if err := d.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().Err(err).Str("webhook_id", webhook.ID).Str("channel", channel).Msg("failed to write notification log")
	}
}
