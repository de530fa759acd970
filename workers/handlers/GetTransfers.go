package handlers

import (
	"net/http"

	"monallobridge/types"
)

func (h *Handler) GetPendingTransfers(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.FindAllByStatus(types.STATUS_PENDING)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	responseJSON(w, recs, http.StatusOK)
}

func (h *Handler) GetRelayedTransfers(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.FindAllByStatus(types.STATUS_RELAYED)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	responseJSON(w, recs, http.StatusOK)
}
