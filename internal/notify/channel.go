// Package notify delivers formatted alert notifications through pluggable
// channels. New channels implement the Channel interface; the dispatcher
// never branches on channel type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Sentinel errors for channel failures.
var (
	ErrSendFailed     = errors.New("notification send failed")
	ErrChannelTimeout = errors.New("notification channel timeout")
)

// Payload is the notification body. Webhook channels post it as JSON; the
// Text field alone is the human-readable rendering used by slack and email.
type Payload struct {
	Text              string `json:"text"`
	RuleName          string `json:"rule_name"`
	Message           string `json:"message"`
	WindowCount       int    `json:"window_count"`
	TimeWindowMinutes int    `json:"time_window_minutes"`
	GroupURL          string `json:"group_url"`
}

// BuildPayload formats a violation into a channel-neutral payload. A zero
// windowMinutes means the condition is not windowed (new_error) and the
// window is left out of the text.
func BuildPayload(ruleName, message string, windowCount, windowMinutes int, groupURL string) Payload {
	text := fmt.Sprintf("[%s] %q fired: %d events. %s",
		ruleName, message, windowCount, groupURL)
	if windowMinutes > 0 {
		text = fmt.Sprintf("[%s] %q fired: %d events in the last %d minutes. %s",
			ruleName, message, windowCount, windowMinutes, groupURL)
	}
	return Payload{
		Text: text,
		RuleName:          ruleName,
		Message:           message,
		WindowCount:       windowCount,
		TimeWindowMinutes: windowMinutes,
		GroupURL:          groupURL,
	}
}

// Channel is the notification transport capability. Send must honor ctx
// cancellation and return within its deadline.
type Channel interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// NewChannel constructs the channel a rule is configured for.
func NewChannel(rule *models.AlertRule, smtp config.SMTPConfig, timeout time.Duration) (Channel, error) {
	switch rule.Channel {
	case models.ChannelWebhook:
		if rule.ChannelWebhookURL == nil || *rule.ChannelWebhookURL == "" {
			return nil, fmt.Errorf("rule %q has no webhook URL", rule.Name)
		}
		return NewWebhookChannel(*rule.ChannelWebhookURL, timeout), nil
	case models.ChannelSlack:
		if rule.ChannelWebhookURL == nil || *rule.ChannelWebhookURL == "" {
			return nil, fmt.Errorf("rule %q has no slack webhook URL", rule.Name)
		}
		return NewSlackChannel(*rule.ChannelWebhookURL, timeout), nil
	case models.ChannelEmail:
		if smtp.Host == "" || smtp.From == "" || len(smtp.To) == 0 {
			return nil, fmt.Errorf("email channel requires SMTP_HOST, SMTP_FROM and SMTP_TO")
		}
		return NewEmailChannel(smtp), nil
	case models.ChannelLog:
		return NewLogChannel(), nil
	default:
		return nil, fmt.Errorf("unknown channel %q: must be one of webhook, slack, email, log", rule.Channel)
	}
}
