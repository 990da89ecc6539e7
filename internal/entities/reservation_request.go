package entities

import "time"

// CreateReservationRequest is the hand-off from a selected search result.
type CreateReservationRequest struct {
	ListingID string `json:"listing_id"`
}

type AcceptRequest struct {
	Note string `json:"note"`
}

// RejectRequest is empty on the first step and carries the token on the
// second.
type RejectRequest struct {
	ConfirmationToken string `json:"confirmation_token"`
}

type RejectionPrompt struct {
	RequestID         string    `json:"request_id"`
	Message           string    `json:"message"`
	ConfirmationToken string    `json:"confirmation_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ReservationView is a request enriched with the counterparty's name.
type ReservationView struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	OwnerID     string    `json:"owner_id"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ReservationResponse struct {
	Reservation ReservationView `json:"reservation"`
	Message     string          `json:"message"`
}
