package emailcode

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// SendGridMailer delivers one-time codes via SendGrid. Does not log the code.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	log       *logrus.Logger
}

// NewSendGridMailer returns a mailer using the given API key and sender.
func NewSendGridMailer(apiKey, fromName, fromEmail string, log *logrus.Logger) *SendGridMailer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		log:       log,
	}
}

// SendCode mails the code to email.
func (m *SendGridMailer) SendCode(ctx context.Context, email, code string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail("", email)
	subject := "Your sign-in code"
	plain := fmt.Sprintf("Your sign-in code is %s. It expires in 10 minutes.", code)
	html := fmt.Sprintf("<p>Your sign-in code is <strong>%s</strong>. It expires in 10 minutes.</p>", code)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.log.WithError(err).WithField("to", email).Error("sendgrid send failed")
		return fmt.Errorf("emailcode: send via sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		m.log.WithFields(logrus.Fields{"to": email, "status": resp.StatusCode}).Error("sendgrid rejected message")
		return fmt.Errorf("emailcode: sendgrid status %d", resp.StatusCode)
	}
	return nil
}
