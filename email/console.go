package email

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Console logs messages instead of sending them. Used when no SendGrid key
// is configured.
type Console struct {
	log logrus.FieldLogger
}

func NewConsole(log logrus.FieldLogger) *Console {
	return &Console{log: log}
}

func (c *Console) Send(ctx context.Context, msg Message) error {
	c.log.WithFields(logrus.Fields{
		"to":      msg.To.String(),
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
