package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// TriggerRelay starts a look-back relay pass for the requested source chain
// (or both when none is given). The pass runs in background: the caller is
// notified, not blocked, and polls BridgeStatus for the outcome.
func (h *Handler) TriggerRelay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Errorf("error reading request body: %s", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	selector := "all"
	if len(body) > 0 {
		var req TriggerRelayRequest
		if err := json.Unmarshal(body, &req); err != nil {
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "Cannot unmarshal input JSON",
			}, http.StatusBadRequest)
			return
		}
		if req.SourceChainID != 0 {
			selector = strconv.Itoa(req.SourceChainID)
		}
	}

	h.Runner.TriggerWithRescans(selector)
	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// RelayTransaction relays a single transaction's bridge event by hash,
// synchronously. Operator recovery for events outside the look-back window.
func (h *Handler) RelayTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req RelayTransactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	if !txHashPattern.MatchString(req.TxHash) {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "txHash",
			Message: "No transaction hash or invalid hash provided",
		}, http.StatusBadRequest)
		return
	}

	if err := h.Runner.RelayTransaction(r.Context(), req.TxHash); err != nil {
		log.Errorf("manual relay of %s: %s", req.TxHash, err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: err.Error(),
		}, http.StatusUnprocessableEntity)
		return
	}
	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}
