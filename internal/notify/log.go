package notify

import (
	"context"
	"log/slog"
)

// LogChannel writes notifications to the structured log. Useful in
// development and as a dead-simple fallback channel.
type LogChannel struct{}

func NewLogChannel() *LogChannel { return &LogChannel{} }

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(_ context.Context, p Payload) error {
	slog.Info("alert notification",
		"rule", p.RuleName,
		"message", p.Message,
		"window_count", p.WindowCount,
		"window_minutes", p.TimeWindowMinutes,
		"group_url", p.GroupURL,
	)
	return nil
}
