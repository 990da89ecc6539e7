package api

import (
	"context"
	"net/http"

	"rentmyparking/internal/auth"
	"rentmyparking/internal/entities"
)

type ProfileAPI interface {
	Load(ctx context.Context, accountID string) (*entities.Profile, error)
	Update(ctx context.Context, accountID string, form entities.ProfileForm) (*entities.ProfileUpdateResult, error)
}

type ProfileHandler struct {
	Service ProfileAPI
}

func NewProfileHandler(svc ProfileAPI) *ProfileHandler {
	return &ProfileHandler{Service: svc}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	profile, err := h.Service.Load(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	var form entities.ProfileForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.Service.Update(r.Context(), accountID, form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
