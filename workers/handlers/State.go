package handlers

import (
	"net/http"
)

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
