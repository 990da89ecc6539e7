package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type MailSender interface {
	SendMail(ctx context.Context, toEmail, toName, subject, plainText, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, toNumber, body string) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (m *SendGridMailer) SendMail(ctx context.Context, toEmail, toName, subject, plainText, html string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toEmail), plainText, html)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email through SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	slog.Info("email sent", "to", toEmail, "subject", subject, "status", response.StatusCode)
	return nil
}

type TwilioSMS struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSMS(accountSid, authToken, fromNumber string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSid,
		Password:   authToken,
		AccountSid: accountSid,
	})
	return &TwilioSMS{client: client, from: fromNumber}
}

// SendSMS sends one message. The Twilio client has no context support.
func (t *TwilioSMS) SendSMS(_ context.Context, toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		slog.Warn("destination number is not E.164, SMS may fail", "to", toNumber)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("sending SMS through Twilio: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		slog.Info("SMS sent", "to", toNumber, "sid", *resp.Sid)
	}
	return nil
}
