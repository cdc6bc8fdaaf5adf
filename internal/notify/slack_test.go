package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackChannel_Notify(t *testing.T) {
	var received slack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSlackChannel(nil, SlackConfig{WebhookURL: server.URL, Channel: "#data-alerts", Username: "bqdesc-backupper"})
	require.True(t, channel.IsEnabled())

	err := channel.Notify(context.Background(), Alert{
		Title:     "restore all failed",
		Message:   "2 exception(s)",
		Command:   "restore all",
		RunID:     "run-42",
		Timestamp: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Fields:    map[string]string{"store": "firestore", "exception": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "#data-alerts", received.Channel)
	assert.Equal(t, "bqdesc-backupper", received.Username)
	assert.Contains(t, received.Text, "restore all failed")
	require.Len(t, received.Attachments, 1)

	attachment := received.Attachments[0]
	assert.Equal(t, "danger", attachment.Color)
	assert.Equal(t, "2 exception(s)", attachment.Text)

	var titles []string
	for _, f := range attachment.Fields {
		titles = append(titles, f.Title)
	}
	assert.Equal(t, []string{"Command", "Run ID", "exception", "store"}, titles)
}

func TestSlackChannel_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	channel := NewSlackChannel(nil, SlackConfig{WebhookURL: server.URL})
	err := channel.Notify(context.Background(), Alert{Title: "backup all failed"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send Slack notification")
}

func TestSlackChannel_Disabled(t *testing.T) {
	channel := NewSlackChannel(nil, SlackConfig{})

	assert.False(t, channel.IsEnabled())
	assert.Error(t, channel.Notify(context.Background(), Alert{Title: "x"}))

	var nop Notifier = Nop{}
	assert.False(t, nop.IsEnabled())
	assert.NoError(t, nop.Notify(context.Background(), Alert{}))
}
