package email

import (
	"context"
	"fmt"

	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPTransport sends mail through an SMTP server authenticated with an
// app password.
type SMTPTransport struct {
	FromEmail string
	dialer    *gomail.Dialer
}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport(host string, port int, username, password, fromEmail string) *SMTPTransport {
	if port == 0 {
		port = 587
	}
	return &SMTPTransport{
		FromEmail: fromEmail,
		dialer:    gomail.NewDialer(host, port, username, password),
	}
}

func (t *SMTPTransport) Name() string {
	return "smtp"
}

// Send delivers one message over SMTP. gomail dials per message, which is
// fine at this service's volume.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", t.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	// gomail's DialAndSend takes no context, so it runs on its own goroutine
	// and cancellation abandons it. The goroutine ends once the server
	// responds or the connection drops.
	done := make(chan error, 1)
	go func() { done <- t.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: smtp send abandoned: %v", domain.ErrDelivery, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: smtp send failed: %v", domain.ErrDelivery, err)
		}
	}

	logger.Base().Info("email sent via SMTP transport", zap.String("to", to))
	return nil
}
