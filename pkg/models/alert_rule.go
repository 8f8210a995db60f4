package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rule condition types.
const (
	ConditionThreshold = "threshold"
	ConditionNewError  = "new_error"
	ConditionCritical  = "critical"
)

// Notification channels. Slack is a webhook POST with a fixed payload shape.
const (
	ChannelWebhook = "webhook"
	ChannelSlack   = "slack"
	ChannelEmail   = "email"
	ChannelLog     = "log"
)

// AlertRule is an operator-defined alerting condition. Rules are created and
// edited by operators only; the engine never mutates them.
type AlertRule struct {
	ID                uuid.UUID `db:"id"                  json:"id"`
	Name              string    `db:"name"                json:"name"`
	ConditionType     string    `db:"condition_type"      json:"condition_type"`
	ThresholdCount    *int      `db:"threshold_count"     json:"threshold_count,omitempty"`
	TimeWindowMinutes *int      `db:"time_window_minutes" json:"time_window_minutes,omitempty"`
	Channel           string    `db:"channel"             json:"channel"`
	ChannelWebhookURL *string   `db:"channel_webhook_url" json:"channel_webhook_url,omitempty"`
	Active            bool      `db:"active"              json:"active"`
	CreatedAt         time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"          json:"updated_at"`
}

// Validate checks the cross-field requirements: threshold rules need a count
// and a window, webhook-style channels need a URL.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}

	switch r.ConditionType {
	case ConditionThreshold:
		if r.ThresholdCount == nil || *r.ThresholdCount < 1 {
			return fmt.Errorf("threshold_count must be >= 1 for threshold rules")
		}
		if r.TimeWindowMinutes == nil || *r.TimeWindowMinutes < 1 {
			return fmt.Errorf("time_window_minutes must be >= 1 for threshold rules")
		}
	case ConditionNewError, ConditionCritical:
		// no extra fields
	default:
		return fmt.Errorf("condition_type must be one of threshold, new_error, critical; got %q", r.ConditionType)
	}

	switch r.Channel {
	case ChannelWebhook, ChannelSlack:
		if r.ChannelWebhookURL == nil || *r.ChannelWebhookURL == "" {
			return fmt.Errorf("channel_webhook_url is required for %s channels", r.Channel)
		}
	case ChannelEmail, ChannelLog:
		// configured globally
	default:
		return fmt.Errorf("channel must be one of webhook, slack, email, log; got %q", r.Channel)
	}

	return nil
}

// Window returns the rule's evaluation window as a duration. Zero for
// non-threshold rules.
func (r *AlertRule) Window() time.Duration {
	if r.TimeWindowMinutes == nil {
		return 0
	}
	return time.Duration(*r.TimeWindowMinutes) * time.Minute
}
