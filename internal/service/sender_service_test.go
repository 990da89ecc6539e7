package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
)

type sentMail struct {
	to, subject, plain, html string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendMail(_ context.Context, toEmail, _, subject, plainText, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{toEmail, subject, plainText, html})
	return m.err
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSMS) SendSMS(_ context.Context, toNumber, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, toNumber)
	return nil
}

func TestSenderRequestResolved(t *testing.T) {
	mailer := &recordingMailer{}
	sms := &recordingSMS{}
	sender := NewSenderService(mailer, sms)

	owner := listing("owner", "Paris", db.SizeCar, "true", true)
	requester := db.Account{ID: "requester", FirstName: "Rene", Email: "rene@example.com", Phone: null.StringFrom("+33611111111")}
	req := pending("req-1")
	req.Status = db.StatusAccepted
	req.Note = null.StringFrom("Gate code 1234")

	sender.RequestResolved(requester, owner, req)
	sender.Wait()

	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, "rene@example.com", mail.to)
	assert.Contains(t, mail.subject, "accepted")
	assert.Contains(t, mail.plain, "1 Rue owner, Paris")
	assert.Contains(t, mail.plain, "Gate code 1234")
	assert.Contains(t, mail.html, "Gate code 1234")
	assert.Equal(t, []string{"+33611111111"}, sms.sent)
}

func TestSenderSkipsMissingChannels(t *testing.T) {
	sender := NewSenderService(nil, nil)
	owner := listing("owner", "Paris", db.SizeCar, "true", true)
	owner.Phone = null.StringFrom("+33600000000")

	assert.NotPanics(t, func() {
		sender.RequestCreated(owner, db.Account{ID: "requester"}, pending("req-1"))
		sender.Wait()
	})
}

func TestSenderReminderHasNoSMSAndToleratesFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("rejected")}
	sms := &recordingSMS{}
	sender := NewSenderService(mailer, sms)
	owner := listing("owner", "Paris", db.SizeCar, "true", true)
	owner.Phone = null.StringFrom("+33600000000")

	sender.PendingReminder(owner, db.Account{ID: "requester", FirstName: "Rene"}, pending("req-1"))
	sender.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].html, "still waiting")
	assert.Empty(t, sms.sent)
}
