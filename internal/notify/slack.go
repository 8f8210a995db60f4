package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackChannel is the slack variant of the webhook channel: a POST with the
// fixed incoming-webhook payload shape {"text": ...}.
type SlackChannel struct {
	url    string
	client *http.Client
}

func NewSlackChannel(url string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: p.Text})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return postJSON(ctx, c.client, c.url, body)
}
