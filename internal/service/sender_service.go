package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
)

//go:embed templates/reservation_email.html
var templateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(templateFS, "templates/reservation_email.html"))

const statusReminder = "reminder"

// Notifier tells the people involved about a request. Calls never block on
// delivery and never fail the operation that triggered them.
type Notifier interface {
	RequestCreated(owner, requester db.Account, req db.ReservationRequest)
	RequestResolved(requester, owner db.Account, req db.ReservationRequest)
	PendingReminder(owner, requester db.Account, req db.ReservationRequest)
}

// SenderService delivers notifications by email and SMS in the background.
// A nil sender is skipped with a warning.
type SenderService struct {
	Mail    MailSender
	SMS     SMSSender
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewSenderService(mail MailSender, sms SMSSender) *SenderService {
	return &SenderService{Mail: mail, SMS: sms, Timeout: 30 * time.Second}
}

func (s *SenderService) RequestCreated(owner, requester db.Account, req db.ReservationRequest) {
	data := emailData(owner, requester, req, string(req.Status))
	s.send(owner, data,
		fmt.Sprintf("RentMyParking: new reservation request from %s", data.OtherName),
		fmt.Sprintf("Hello %s,\n\n%s would like to rent your parking spot at %s.\nOpen the app to accept or reject the request.\n\nRentMyParking",
			data.RecipientName, data.OtherName, data.Address),
		fmt.Sprintf("RentMyParking: %s sent you a reservation request. Open the app to answer.", data.OtherName),
	)
}

func (s *SenderService) RequestResolved(requester, owner db.Account, req db.ReservationRequest) {
	data := emailData(requester, owner, req, string(req.Status))
	// The requester's address is the owner's listing.
	data.Address = owner.FullAddress()
	plain := fmt.Sprintf("Hello %s,\n\nYour reservation request for %s was %s by %s.\n",
		data.RecipientName, data.Address, data.Status, data.OtherName)
	if data.Note != "" {
		plain += fmt.Sprintf("Note from the owner: %s\n", data.Note)
	}
	plain += "\nRentMyParking"
	s.send(requester, data,
		fmt.Sprintf("RentMyParking: your reservation request was %s", data.Status),
		plain,
		fmt.Sprintf("RentMyParking: your request for %s was %s.", data.Address, data.Status),
	)
}

func (s *SenderService) PendingReminder(owner, requester db.Account, req db.ReservationRequest) {
	data := emailData(owner, requester, req, statusReminder)
	s.send(owner, data,
		"RentMyParking: a reservation request is waiting for you",
		fmt.Sprintf("Hello %s,\n\nThe request from %s for %s is still waiting for your answer.\n\nRentMyParking",
			data.RecipientName, data.OtherName, data.Address),
		"",
	)
}

// Wait blocks until every queued delivery has finished.
func (s *SenderService) Wait() {
	s.wg.Wait()
}

func emailData(recipient, other db.Account, req db.ReservationRequest, status string) entities.ReservationEmailData {
	return entities.ReservationEmailData{
		RecipientName: recipient.FirstName,
		OtherName:     other.FirstName + " " + other.LastName,
		RequestID:     req.ID,
		Status:        status,
		Address:       recipient.FullAddress(),
		Note:          req.Note.String,
		CurrentYear:   time.Now().Year(),
	}
}

func (s *SenderService) send(to db.Account, data entities.ReservationEmailData, subject, plain, sms string) {
	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, data); err != nil {
		slog.Error("could not render email template", "request", data.RequestID, "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()

		if s.Mail == nil {
			slog.Warn("email sender not configured, skipping email", "request", data.RequestID, "to", to.ID)
		} else if err := s.Mail.SendMail(ctx, to.Email, data.RecipientName, subject, plain, html.String()); err != nil {
			slog.Error("email delivery failed", "request", data.RequestID, "to", to.ID, "error", err)
		}

		if sms == "" || !to.Phone.Valid || to.Phone.String == "" {
			return
		}
		if s.SMS == nil {
			slog.Warn("SMS sender not configured, skipping SMS", "request", data.RequestID, "to", to.ID)
			return
		}
		if err := s.SMS.SendSMS(ctx, to.Phone.String, sms); err != nil {
			slog.Error("SMS delivery failed", "request", data.RequestID, "to", to.ID, "error", err)
		}
	}()
}
