package mailer

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/riadkhan60/chickenhut/internal/config"
	"github.com/riadkhan60/chickenhut/pkg/localtime"
)

// Client delivers rendered reports as PDF attachments over an authenticated
// SMTP relay.
type Client struct {
	cfg    config.EmailConfig
	zone   *localtime.Zone
	logger *zap.Logger
}

func New(cfg config.EmailConfig, zone *localtime.Zone, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, zone: zone, logger: logger}
}

// Send emails the document at path to the configured recipient. On relay
// acceptance the local file is removed; a missing file at that point is
// logged, not escalated. On failure the file is left in place so the report
// can be inspected or retried.
func (c *Client) Send(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	today := c.zone.DateString(time.Now())

	m := gomail.NewMessage()
	m.SetHeader("From", c.cfg.From)
	m.SetHeader("To", c.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("Restaurant Orders Report - %s", today))
	m.SetBody("text/plain", fmt.Sprintf(
		"Please find attached the restaurant orders report for %s with all completed orders since the last report.", today))
	m.Attach(path)

	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	d.SSL = c.cfg.Port == 465

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report email via %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}

	c.logger.Info("report email sent", zap.String("to", c.cfg.To), zap.String("attachment", path))

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("could not delete report file, it no longer exists", zap.String("path", path))
		} else {
			c.logger.Warn("failed to delete report file after sending", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}
