package bridge

import (
	"math/big"
	"testing"

	"monallobridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

func makeLog(t *testing.T, dir types.Direction, sender, recipient common.Address, amount *big.Int, destChain int64, nonce uint64, txHash common.Hash) ethtypes.Log {
	t.Helper()

	data, err := bridgeABI.Events[eventName(dir)].Inputs.NonIndexed().Pack(amount, big.NewInt(destChain))
	if err != nil {
		t.Fatalf("packing event data: %v", err)
	}

	return ethtypes.Log{
		Topics: []common.Hash{
			eventTopic(dir),
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(recipient.Bytes()),
			common.BigToHash(new(big.Int).SetUint64(nonce)),
		},
		Data:   data,
		TxHash: txHash,
	}
}

func TestDecodeLockedEvent(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(1000000000000000000)
	txHash := common.HexToHash("0xaaa0000000000000000000000000000000000000000000000000000000000bbb")

	l := makeLog(t, types.DIRECTION_LOCK, sender, recipient, amount, 420420417, 7, txHash)

	ev, err := decodeEvent(11155111, types.DIRECTION_LOCK, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if ev.Direction != types.DIRECTION_LOCK {
		t.Fatalf("direction: %s", ev.Direction)
	}
	if ev.SourceChain != 11155111 || ev.DestChain != 420420417 {
		t.Fatalf("chains: %d -> %d", ev.SourceChain, ev.DestChain)
	}
	if ev.Sender != sender.Hex() || ev.Recipient != recipient.Hex() {
		t.Fatalf("addresses: %s, %s", ev.Sender, ev.Recipient)
	}
	if ev.Amount.Cmp(amount) != 0 {
		t.Fatalf("amount: %s", ev.Amount)
	}
	if ev.Nonce != 7 {
		t.Fatalf("nonce: %d", ev.Nonce)
	}
	if ev.SourceTxHash != txHash.Hex() {
		t.Fatalf("tx hash: %s", ev.SourceTxHash)
	}
}

func TestDecodeUnlockRequestedEvent(t *testing.T) {
	l := makeLog(t, types.DIRECTION_UNLOCK,
		common.HexToAddress("0x01"), common.HexToAddress("0x02"),
		big.NewInt(5), 11155111, 3, common.HexToHash("0xccc"))

	ev, err := decodeEvent(420420417, types.DIRECTION_UNLOCK, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Direction != types.DIRECTION_UNLOCK || ev.DestChain != 11155111 || ev.Nonce != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeRejectsWrongTopicCount(t *testing.T) {
	l := makeLog(t, types.DIRECTION_LOCK,
		common.HexToAddress("0x01"), common.HexToAddress("0x02"),
		big.NewInt(5), 1, 3, common.HexToHash("0xccc"))
	l.Topics = l.Topics[:2]

	if _, err := decodeEvent(1, types.DIRECTION_LOCK, l); err == nil {
		t.Fatal("expected decode error for truncated topics")
	}
}

func TestDecodeRejectsWrongSignature(t *testing.T) {
	l := makeLog(t, types.DIRECTION_UNLOCK,
		common.HexToAddress("0x01"), common.HexToAddress("0x02"),
		big.NewInt(5), 1, 3, common.HexToHash("0xccc"))

	// an UnlockRequested log presented as Locked must not decode
	if _, err := decodeEvent(1, types.DIRECTION_LOCK, l); err == nil {
		t.Fatal("expected decode error for mismatched signature")
	}
}

func TestNonceAlreadyProcessed(t *testing.T) {
	for _, reason := range []string{
		"Bridge: nonce already processed",
		"execution reverted: transfer already PROCESSED",
	} {
		if !nonceAlreadyProcessed(reason) {
			t.Fatalf("expected %q to be recognized", reason)
		}
	}
	if nonceAlreadyProcessed("insufficient funds for gas") {
		t.Fatal("unrelated revert recognized as processed nonce")
	}
}
