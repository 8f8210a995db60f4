package notify

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/faultline/internal/config"
	"gopkg.in/gomail.v2"
)

// EmailChannel delivers notifications over SMTP to a fixed operator list.
type EmailChannel struct {
	cfg config.SMTPConfig
}

func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, p Payload) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.cfg.From)
	m.SetHeader("To", c.cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("[faultline] %s", p.RuleName))
	m.SetBody("text/plain", p.Text)

	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.User, c.cfg.Password)

	// gomail has no context support; run the send in a goroutine so the
	// dispatcher's deadline still bounds the wait.
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrChannelTimeout, ctx.Err())
	}
}
