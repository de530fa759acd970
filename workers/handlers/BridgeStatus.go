package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"monallobridge/types"

	log "github.com/sirupsen/logrus"
)

// BridgeStatus reports the relay status of a source transaction. Returns a
// synthetic "pending" when nothing was observed yet: the application keeps
// polling, it never sees a hard failure state here.
func (h *Handler) BridgeStatus(w http.ResponseWriter, r *http.Request) {
	chainIDParam := r.URL.Query().Get("sourceChainId")
	txHash := strings.TrimSpace(r.URL.Query().Get("sourceTxHash"))
	if chainIDParam == "" || txHash == "" {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "sourceChainId and sourceTxHash required",
		}, http.StatusBadRequest)
		return
	}

	sourceChainID, err := strconv.Atoi(chainIDParam)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "sourceChainId",
			Message: "Invalid sourceChainId",
		}, http.StatusBadRequest)
		return
	}

	rec, err := h.Store.LatestBySourceTx(sourceChainID, txHash)
	if err != nil {
		log.Errorf("error querying bridge status: %s", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Failed to get bridge status",
		}, http.StatusInternalServerError)
		return
	}

	if rec == nil {
		responseJSON(w, &APIBridgeStatusResponse{Status: types.STATUS_PENDING}, http.StatusOK)
		return
	}

	responseJSON(w, &APIBridgeStatusResponse{
		Status:            rec.Status,
		DestinationTxHash: rec.DestTxHash,
		Type:              string(rec.Direction),
	}, http.StatusOK)
}
