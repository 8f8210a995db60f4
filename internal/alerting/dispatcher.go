package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/notify"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// ChannelFactory builds the notification channel a rule is configured for.
type ChannelFactory func(rule *models.AlertRule) (notify.Channel, error)

// Dispatcher sends one notification per violation and records every attempt.
// A failed send is still recorded (notified=false) so the cooldown starts
// and a down channel cannot cause a retry storm.
type Dispatcher struct {
	store    Store
	channels ChannelFactory
	timeout  time.Duration
	baseURL  string
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. timeout bounds each outbound send;
// baseURL is used to build the incident reference link.
func NewDispatcher(s Store, channels ChannelFactory, timeout time.Duration, baseURL string) *Dispatcher {
	return &Dispatcher{store: s, channels: channels, timeout: timeout, baseURL: baseURL, now: time.Now}
}

// Dispatch formats and sends the violation through the rule's channel,
// then writes the alert record. Transport failures are logged and absorbed;
// they must not block other violations in the batch. Returns whether the
// notification was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, v Violation) bool {
	payload := notify.BuildPayload(
		v.Rule.Name, v.Group.Message, v.WindowCount, v.WindowMinutes,
		fmt.Sprintf("%s/api/v1/groups/%s", d.baseURL, v.Group.ID),
	)

	var sendErr error
	channel, err := d.channels(v.Rule)
	if err != nil {
		sendErr = err
	} else {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		sendErr = channel.Send(sendCtx, payload)
		cancel()
	}

	if sendErr != nil {
		slog.Error("notification dispatch failed",
			"rule_id", v.Rule.ID, "rule", v.Rule.Name,
			"group_id", v.Group.ID, "channel", v.Rule.Channel,
			"error", sendErr,
		)
	}

	record := &models.Alert{
		ID:           uuid.New(),
		RuleID:       v.Rule.ID,
		GroupID:      v.Group.ID,
		CreatedAt:    d.now().UTC(),
		Notified:     sendErr == nil,
		ErrorMessage: v.Group.Message,
	}
	if err := d.store.CreateAlert(ctx, record); err != nil {
		slog.Error("failed to record alert",
			"rule_id", v.Rule.ID, "group_id", v.Group.ID, "error", err)
	}

	return sendErr == nil
}
