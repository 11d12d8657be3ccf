package utils

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// OutboundEmail is a single message handed to a Mailer
type OutboundEmail struct {
	To       string
	Subject  string
	Body     string
	Sequence string
	Step     string
}

// Mailer delivers outbound email
type Mailer interface {
	Send(ctx context.Context, email OutboundEmail) error
}

// LogMailer builds the full MIME message but never dials a server; it only
// logs what would have been sent.
type LogMailer struct {
	FromEmail string
	Logger    *logrus.Entry
}

func NewLogMailer(fromEmail string, logger *logrus.Entry) *LogMailer {
	if logger == nil {
		logger = Component("mailer")
	}
	return &LogMailer{FromEmail: fromEmail, Logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, email OutboundEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.compose(email)

	var size countingWriter
	if _, err := msg.WriteTo(&size); err != nil {
		return fmt.Errorf("error composing email: %w", err)
	}

	m.Logger.WithFields(logrus.Fields{
		"to":       email.To,
		"subject":  email.Subject,
		"sequence": email.Sequence,
		"step":     email.Step,
		"bytes":    int64(size),
	}).Info("Email queued (transport disabled)")
	return nil
}

func (m *LogMailer) compose(email OutboundEmail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.FromEmail)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	if email.Sequence != "" {
		msg.SetHeader("X-Sequence-ID", email.Sequence)
	}
	if email.Step != "" {
		msg.SetHeader("X-Sequence-Step", email.Step)
	}
	msg.SetBody("text/plain", email.Body)
	return msg
}

type countingWriter int64

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))
	return len(p), nil
}
