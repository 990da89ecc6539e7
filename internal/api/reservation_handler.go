package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"rentmyparking/internal/auth"
	"rentmyparking/internal/entities"
)

type ReservationAPI interface {
	Create(ctx context.Context, requesterID, listingID string) (*entities.ReservationResponse, error)
	Accept(ctx context.Context, ownerID, requestID, note string) (*entities.ReservationResponse, error)
	PrepareRejection(ctx context.Context, ownerID, requestID string) (*entities.RejectionPrompt, error)
	ConfirmRejection(ctx context.Context, ownerID, requestID, token string) (*entities.ReservationResponse, error)
	PendingForOwner(ctx context.Context, ownerID string) ([]entities.ReservationView, error)
	PastForRequester(ctx context.Context, requesterID string) ([]entities.ReservationView, error)
}

type ReservationHandler struct {
	Service ReservationAPI
}

func NewReservationHandler(svc ReservationAPI) *ReservationHandler {
	return &ReservationHandler{Service: svc}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	var req entities.CreateReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Service.Create(r.Context(), accountID, req.ListingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReservationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	views, err := h.Service.PendingForOwner(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ReservationHandler) Past(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	views, err := h.Service.PastForRequester(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ReservationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	var req entities.AcceptRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Service.Accept(r.Context(), accountID, mux.Vars(r)["id"], req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reject without a token returns the confirmation prompt. Sending the
// token back performs the rejection.
func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	requestID := mux.Vars(r)["id"]

	var req entities.RejectRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.ConfirmationToken == "" {
		prompt, err := h.Service.PrepareRejection(r.Context(), accountID, requestID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prompt)
		return
	}

	resp, err := h.Service.ConfirmRejection(r.Context(), accountID, requestID, req.ConfirmationToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
