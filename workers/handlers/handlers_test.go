package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"monallobridge/store"
	"monallobridge/types"

	"github.com/pkg/errors"
)

type stubRunner struct {
	triggers []string
	relayed  []string
	relayErr error
}

func (s *stubRunner) TriggerWithRescans(selector string) {
	s.triggers = append(s.triggers, selector)
}

func (s *stubRunner) RelayTransaction(_ context.Context, txHash string) error {
	if s.relayErr != nil {
		return s.relayErr
	}
	s.relayed = append(s.relayed, txHash)
	return nil
}

func relayedRecord() *types.TransferRecord {
	return &types.TransferRecord{
		Direction:    types.DIRECTION_LOCK,
		SourceChain:  11155111,
		SourceTxHash: "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc",
		Recipient:    "0x2222222222222222222222222222222222222222",
		Amount:       "1000000000000000000",
		Nonce:        5,
		DestChain:    420420417,
		Status:       types.STATUS_RELAYED,
		DestTxHash:   "0xdddd",
	}
}

func TestBridgeStatusUnknownIsPending(t *testing.T) {
	h := New(store.NewMemoryStore(), &stubRunner{})

	req := httptest.NewRequest(http.MethodGet,
		"/bridge/status?sourceChainId=11155111&sourceTxHash=0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc", nil)
	w := httptest.NewRecorder()
	h.BridgeStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	var resp APIBridgeStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %s", err.Error())
	}
	if resp.Status != types.STATUS_PENDING {
		t.Fatalf("status = %q, expected pending", resp.Status)
	}
	if resp.DestinationTxHash != "" {
		t.Fatalf("unexpected destination tx hash %q", resp.DestinationTxHash)
	}
}

func TestBridgeStatusRelayed(t *testing.T) {
	st := store.NewMemoryStore()
	rec := relayedRecord()
	if _, err := st.Insert(rec); err != nil {
		t.Fatalf("seeding record: %s", err.Error())
	}
	h := New(st, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet,
		"/bridge/status?sourceChainId=11155111&sourceTxHash="+rec.SourceTxHash, nil)
	w := httptest.NewRecorder()
	h.BridgeStatus(w, req)

	var resp APIBridgeStatusResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != types.STATUS_RELAYED {
		t.Fatalf("status = %q, expected relayed", resp.Status)
	}
	if resp.DestinationTxHash != rec.DestTxHash {
		t.Fatalf("destinationTxHash = %q, expected %q", resp.DestinationTxHash, rec.DestTxHash)
	}
	if resp.Type != string(types.DIRECTION_LOCK) {
		t.Fatalf("type = %q, expected lock", resp.Type)
	}
}

func TestBridgeStatusRejectsBadParams(t *testing.T) {
	h := New(store.NewMemoryStore(), &stubRunner{})

	for _, target := range []string{
		"/bridge/status",
		"/bridge/status?sourceChainId=xx&sourceTxHash=0xcc",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		h.BridgeStatus(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status code = %d, expected 400", target, w.Code)
		}
	}
}

func TestTriggerRelay(t *testing.T) {
	runner := &stubRunner{}
	h := New(store.NewMemoryStore(), runner)

	req := httptest.NewRequest(http.MethodPost, "/bridge/trigger", strings.NewReader(`{"sourceChainId":11155111}`))
	w := httptest.NewRecorder()
	h.TriggerRelay(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	if len(runner.triggers) != 1 || runner.triggers[0] != "11155111" {
		t.Fatalf("triggers = %v", runner.triggers)
	}

	// empty body defaults to all chains
	req = httptest.NewRequest(http.MethodPost, "/bridge/trigger", nil)
	w = httptest.NewRecorder()
	h.TriggerRelay(w, req)
	if len(runner.triggers) != 2 || runner.triggers[1] != "all" {
		t.Fatalf("triggers = %v", runner.triggers)
	}
}

func TestRelayTransactionValidatesHash(t *testing.T) {
	runner := &stubRunner{}
	h := New(store.NewMemoryStore(), runner)

	req := httptest.NewRequest(http.MethodPost, "/bridge/relay-tx", strings.NewReader(`{"txHash":"0x1234"}`))
	w := httptest.NewRecorder()
	h.RelayTransaction(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, expected 400", w.Code)
	}
	if len(runner.relayed) != 0 {
		t.Fatalf("invalid hash reached the runner: %v", runner.relayed)
	}
}

func TestRelayTransaction(t *testing.T) {
	runner := &stubRunner{}
	h := New(store.NewMemoryStore(), runner)
	hash := "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

	req := httptest.NewRequest(http.MethodPost, "/bridge/relay-tx", strings.NewReader(`{"txHash":"`+hash+`"}`))
	w := httptest.NewRecorder()
	h.RelayTransaction(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	if len(runner.relayed) != 1 || runner.relayed[0] != hash {
		t.Fatalf("relayed = %v", runner.relayed)
	}

	runner.relayErr = errors.New("no bridge event found")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/bridge/relay-tx", strings.NewReader(`{"txHash":"`+hash+`"}`))
	h.RelayTransaction(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d, expected 422", w.Code)
	}
}

func TestGetTransfersByStatus(t *testing.T) {
	st := store.NewMemoryStore()
	st.Insert(relayedRecord())
	h := New(st, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/stats/relayed", nil)
	w := httptest.NewRecorder()
	h.GetRelayedTransfers(w, req)

	var recs []*types.TransferRecord
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decoding response: %s", err.Error())
	}
	if len(recs) != 1 || recs[0].Status != types.STATUS_RELAYED {
		t.Fatalf("unexpected relayed listing: %+v", recs)
	}

	w = httptest.NewRecorder()
	h.GetPendingTransfers(w, httptest.NewRequest(http.MethodGet, "/stats/pending", nil))
	recs = nil
	json.Unmarshal(w.Body.Bytes(), &recs)
	if len(recs) != 0 {
		t.Fatalf("expected empty pending listing, got %+v", recs)
	}
}
