package types

import (
	"fmt"
	"math/big"
)

// Direction of a cross-chain transfer as seen from the source chain.
// A lock of native funds requests a wrapped mint on the destination chain,
// an unlock (wrapped burn) requests a release of the native asset back.
type Direction string

const DIRECTION_LOCK Direction = "lock"
const DIRECTION_UNLOCK Direction = "unlock"

const STATUS_PENDING = "pending"
const STATUS_RELAYED = "relayed"

// BridgeEvent is one decoded Locked or UnlockRequested log.
// Immutable once observed; (SourceChain, SourceTxHash, Nonce) is the
// replay-protection identity of the event.
type BridgeEvent struct {
	Direction    Direction
	SourceChain  int
	SourceTxHash string
	Sender       string
	Recipient    string
	Amount       *big.Int // smallest unit
	DestChain    int
	Nonce        uint64
}

// TransferRecord is the durable record of one relay attempt.
// Created as pending when the event is first observed, flipped to relayed
// once the destination call is confirmed, never deleted.
type TransferRecord struct {
	ID           string
	Direction    Direction
	SourceChain  int
	SourceTxHash string
	Recipient    string
	Amount       string // decimal, smallest unit
	Nonce        uint64
	DestChain    int
	Status       string
	DestTxHash   string // empty until relayed
	TsCreated    int64
	Message      string // messages that help to track processing/errors
}

// ProofKey is the natural key of a record, unique per on-chain event.
func (r *TransferRecord) ProofKey() string {
	return ProofKey(r.Direction, r.SourceChain, r.SourceTxHash, r.Nonce)
}

func ProofKey(dir Direction, sourceChain int, sourceTxHash string, nonce uint64) string {
	return fmt.Sprintf("%s:%d:%s:%d", dir, sourceChain, sourceTxHash, nonce)
}

func NewTransferRecord(ev BridgeEvent, ts int64) *TransferRecord {
	return &TransferRecord{
		Direction:    ev.Direction,
		SourceChain:  ev.SourceChain,
		SourceTxHash: ev.SourceTxHash,
		Recipient:    ev.Recipient,
		Amount:       ev.Amount.String(),
		Nonce:        ev.Nonce,
		DestChain:    ev.DestChain,
		Status:       STATUS_PENDING,
		TsCreated:    ts,
	}
}
