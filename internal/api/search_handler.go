package api

import (
	"context"
	"net/http"

	"rentmyparking/internal/entities"
)

type SearchAPI interface {
	Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error)
}

type SearchHandler struct {
	Service SearchAPI
}

func NewSearchHandler(svc SearchAPI) *SearchHandler {
	return &SearchHandler{Service: svc}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req entities.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Service.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
