// Package mailer forwards contact form submissions by e-mail.
//
// Delivery refreshes a Google OAuth2 access token, confirms it with the
// tokeninfo endpoint and then hands the message to an SMTP server. When no
// OAuth2 credentials are configured the sender's static password is used.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adenrele/Web-Portfolio/internal/logging"
)

// ErrSendFailed wraps any failure after a valid token was obtained
var ErrSendFailed = errors.New("failed to send message")

// Envelope is one contact form submission on its way to the site owner
type Envelope struct {
	ID      string
	Name    string
	Email   string
	Subject string
	Message string
}

// FormatBody renders the submission as the mail body
func FormatBody(name, email, message string) string {
	return fmt.Sprintf("From: %s <%s>\n\n%s\n", name, email, message)
}

// Mailer ties token refresh, token check and SMTP delivery together
type Mailer struct {
	tokens    TokenProvider
	checker   TokenChecker
	sender    Sender
	from      string
	recipient string
	logger    *logging.Logger
}

// New creates a mailer. tokens and checker may be nil to skip OAuth2.
func New(sender Sender, tokens TokenProvider, checker TokenChecker, from, recipient string, logger *logging.Logger) *Mailer {
	return &Mailer{
		tokens:    tokens,
		checker:   checker,
		sender:    sender,
		from:      from,
		recipient: recipient,
		logger:    logger,
	}
}

// Deliver sends env to the configured recipient. Token problems return an
// error wrapping ErrInvalidToken, delivery problems one wrapping ErrSendFailed.
func (m *Mailer) Deliver(ctx context.Context, env Envelope) error {
	var accessToken string

	if m.tokens != nil {
		token, err := m.tokens.AccessToken(ctx)
		if err != nil {
			m.logger.MailLog(env.ID, "token refresh failed: %v", err)
			return err
		}

		if m.checker != nil {
			info, err := m.checker.CheckToken(ctx, token)
			if err != nil {
				m.logger.MailLog(env.ID, "access token is invalid or expired: %v", err)
				if errors.Is(err, ErrInvalidToken) {
					return err
				}
				return fmt.Errorf("%w: %v", ErrInvalidToken, err)
			}
			m.logger.MailLog(env.ID, "access token is valid, expires in %s s", info.ExpiresIn)
		}
		accessToken = token
	}

	msg := Message{
		ID:      env.ID,
		From:    m.from,
		To:      []string{m.recipient},
		ReplyTo: env.Email,
		Subject: env.Subject,
		Body:    FormatBody(env.Name, env.Email, env.Message),
	}

	if err := m.sender.Send(ctx, msg, accessToken); err != nil {
		m.logger.MailLog(env.ID, "failed to send email: %v", err)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.logger.MailLog(env.ID, "sent %q to %s", env.Subject, m.recipient)
	return nil
}
