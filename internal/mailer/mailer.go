// Package mailer sends account emails through Resend.
package mailer

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
)

// Mailer delivers the messages the account flow needs.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, to, name string) error
}

// New returns a Resend backed mailer, or a LogMailer when apiKey is empty.
func New(apiKey, from string) Mailer {
	if apiKey == "" {
		logging.Warn().Msg("RESEND_API_KEY not set, emails will only be logged")
		return LogMailer{}
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func (m *ResendMailer) send(ctx context.Context, kind, to, subject, htmlBody, text string) error {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
		Text:    text,
	})
	metrics.RecordMail(kind, err)
	if err != nil {
		return fmt.Errorf("resend %s: %w", kind, err)
	}
	logging.Ctx(ctx).Debug().Str("kind", kind).Str("email_id", sent.Id).Msg("mail sent")
	return nil
}

func (m *ResendMailer) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	subject, htmlBody, text := otpContent(name, code, ttl)
	return m.send(ctx, "otp", to, subject, htmlBody, text)
}

func (m *ResendMailer) SendWelcome(ctx context.Context, to, name string) error {
	text := fmt.Sprintf("Hi %s, your CircuLink account is ready. You can now reserve library rooms.", name)
	return m.send(ctx, "welcome", to, "Welcome to CircuLink",
		"<p>"+html.EscapeString(text)+"</p>", text)
}

func otpContent(name, code string, ttl time.Duration) (subject, htmlBody, text string) {
	minutes := int(ttl.Minutes())
	subject = "Your CircuLink verification code"
	text = fmt.Sprintf("Hi %s, your verification code is %s. It expires in %d minutes.", name, code, minutes)
	htmlBody = fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
		html.EscapeString(name), code, minutes)
	return subject, htmlBody, text
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) SendOTP(ctx context.Context, to, _, code string, ttl time.Duration) error {
	logging.Ctx(ctx).Info().Str("to", to).Str("otp", code).Dur("ttl", ttl).Msg("otp email (not sent)")
	metrics.RecordMail("otp", nil)
	return nil
}

func (LogMailer) SendWelcome(ctx context.Context, to, _ string) error {
	logging.Ctx(ctx).Info().Str("to", to).Msg("welcome email (not sent)")
	metrics.RecordMail("welcome", nil)
	return nil
}
