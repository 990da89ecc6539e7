package api

import (
	"context"
	"net/http"

	"rentmyparking/internal/entities"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*entities.LoginResponse, error)
	Register(ctx context.Context, req entities.RegisterRequest) (*entities.LoginResponse, error)
}

type AuthHandler struct {
	Service AuthAPI
}

func NewAuthHandler(svc AuthAPI) *AuthHandler {
	return &AuthHandler{Service: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
