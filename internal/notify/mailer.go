package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is a single plain-text message.
type Email struct {
	ToAddress string
	ToName    string
	Subject   string
	Body      string
}

// Mailer is any service that can deliver an email. Delivery is best-effort;
// callers report the error but never retry here.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// ConsoleMailer logs messages instead of sending them. Default in dev and tests.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer creates a console-backed mailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

// Send logs the message.
func (m *ConsoleMailer) Send(_ context.Context, msg Email) error {
	m.logger.Info("email (console backend)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// SendgridMailer delivers through the SendGrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgridMailer creates a SendGrid-backed mailer.
func NewSendgridMailer(apiKey, fromName, fromAddress string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers one message.
func (m *SendgridMailer) Send(ctx context.Context, msg Email) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	mail := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.Body, "")

	resp, err := m.client.SendWithContext(ctx, mail)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
