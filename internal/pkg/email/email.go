// Package email delivers transactional mail through SendGrid, or logs it
// when no API key is configured.
package email

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Config holds sender settings
type Config struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// Message is a single outgoing email
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns a SendGrid sender, or a logging sender when the key is empty
func NewSender(cfg Config, logger zerolog.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		logger.Warn().Msg("SendGrid API key not configured - emails will only be logged")
		return &LogSender{logger: logger}
	}
	return &SendGridSender{
		key:        cfg.SendGridAPIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		subjPrefix: "[" + cfg.FromName + "] ",
		logger:     logger,
	}
}

// SendGridSender sends through the SendGrid v3 API
type SendGridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     zerolog.Logger
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return m
}

// Send posts the message. The SendGrid client has no context support, so
// ctx is only checked before the request is made.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d", res.StatusCode)
	}

	s.logger.Debug().Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("Email not sent (no provider configured)")
	return nil
}

// Notifier renders domain notifications and hands them to a Sender
type Notifier struct {
	sender Sender
	logger zerolog.Logger
}

// NewNotifier creates a Notifier
func NewNotifier(sender Sender, logger zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

// SelectionReviewed tells a student their selection was approved, rejected or reopened
func (n *Notifier) SelectionReviewed(ctx context.Context, toEmail, toName, offeringName, status, comment string) error {
	text := fmt.Sprintf("Hello %s,\n\nYour selection for %q is now %s.\n", toName, offeringName, status)
	if comment != "" {
		text += fmt.Sprintf("\nComment from the program office: %s\n", comment)
	}

	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<p>Hello %s,</p>
<p>Your selection for <strong>%s</strong> is now <strong>%s</strong>.</p>`,
		html.EscapeString(toName), html.EscapeString(offeringName), html.EscapeString(status))
	if comment != "" {
		body += fmt.Sprintf("<p>Comment from the program office: %s</p>", html.EscapeString(comment))
	}
	body += "</body></html>"

	return n.send(ctx, Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: "Selection " + status + ": " + offeringName,
		Text:    text,
		HTML:    body,
	})
}

// Welcome sends login details to a newly created account. A non-empty
// tempPassword is included and must be changed after the first sign in.
func (n *Notifier) Welcome(ctx context.Context, toEmail, toName, institutionName, loginURL, tempPassword string) error {
	text := fmt.Sprintf("Hello %s,\n\nAn ElectivePRO account was created for you at %s.\nSign in at %s\n",
		toName, institutionName, loginURL)
	extra := ""
	if tempPassword != "" {
		text += fmt.Sprintf("Temporary password: %s\nPlease change it after signing in.\n", tempPassword)
		extra = fmt.Sprintf("<p>Temporary password: <code>%s</code><br>Please change it after signing in.</p>\n",
			html.EscapeString(tempPassword))
	}
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<p>Hello %s,</p>
<p>An ElectivePRO account was created for you at <strong>%s</strong>.</p>
%s<p><a href="%s">Sign in</a></p>
</body></html>`, html.EscapeString(toName), html.EscapeString(institutionName), extra, html.EscapeString(loginURL))

	return n.send(ctx, Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: "Welcome to " + institutionName,
		Text:    text,
		HTML:    body,
	})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error().Err(err).Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Failed to send email")
		return err
	}
	return nil
}
