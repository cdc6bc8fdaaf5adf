// Package notify sends alerts about failed runs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"bqdesc-backupper/internal/logging"
)

// Alert describes a failed command run
type Alert struct {
	Title     string
	Message   string
	Command   string
	RunID     string
	Timestamp time.Time
	Fields    map[string]string
}

// Notifier delivers alerts
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	IsEnabled() bool
}

// SlackConfig for Slack incoming webhooks
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
	IconEmoji  string
}

// SlackChannel posts alerts to a Slack incoming webhook
type SlackChannel struct {
	logger *logging.Logger
	config SlackConfig
	client *http.Client
}

// NewSlackChannel creates a new Slack notification channel
func NewSlackChannel(logger *logging.Logger, config SlackConfig) *SlackChannel {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if config.IconEmoji == "" {
		config.IconEmoji = ":rotating_light:"
	}
	return &SlackChannel{
		logger: logger,
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsEnabled checks if the channel is enabled
func (sc *SlackChannel) IsEnabled() bool {
	return sc.config.WebhookURL != ""
}

// Notify sends alert to Slack
func (sc *SlackChannel) Notify(ctx context.Context, alert Alert) error {
	if !sc.IsEnabled() {
		return fmt.Errorf("slack webhook URL not configured")
	}

	msg := sc.message(alert)
	if err := slack.PostWebhookCustomHTTPContext(ctx, sc.config.WebhookURL, sc.client, msg); err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}

	sc.logger.WithFields(map[string]interface{}{
		"command": alert.Command,
		"run_id":  alert.RunID,
	}).Debug("Slack alert sent")
	return nil
}

func (sc *SlackChannel) message(alert Alert) *slack.WebhookMessage {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	fields := []slack.AttachmentField{
		{Title: "Command", Value: alert.Command, Short: true},
		{Title: "Run ID", Value: alert.RunID, Short: true},
	}
	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, slack.AttachmentField{Title: k, Value: alert.Fields[k], Short: true})
	}

	return &slack.WebhookMessage{
		Channel:   sc.config.Channel,
		Username:  sc.config.Username,
		IconEmoji: sc.config.IconEmoji,
		Text:      fmt.Sprintf("%s %s", sc.config.IconEmoji, alert.Title),
		Attachments: []slack.Attachment{
			{
				Color:  "danger",
				Title:  alert.Title,
				Text:   alert.Message,
				Ts:     json.Number(strconv.FormatInt(alert.Timestamp.Unix(), 10)),
				Fields: fields,
			},
		},
	}
}

// Nop drops every alert
type Nop struct{}

func (Nop) Notify(ctx context.Context, alert Alert) error { return nil }

func (Nop) IsEnabled() bool { return false }
