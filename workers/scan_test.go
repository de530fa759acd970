package workers

import (
	"context"
	"testing"

	"monallobridge/bridge"
	"monallobridge/config"
	"monallobridge/types"

	"github.com/pkg/errors"
)

type eventCollector struct {
	events []types.BridgeEvent
	err    error
}

func (c *eventCollector) process(ev types.BridgeEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestScannerPrimesOnFirstPass(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 100)
	client.PlaceEvent(50, lockEvent(1))
	scanner := NewScanner(client)
	collector := &eventCollector{}

	// history before the first observed head is never scanned
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("priming poll: %s", err.Error())
	}
	if len(collector.events) != 0 {
		t.Fatalf("priming pass delivered %d events", len(collector.events))
	}

	client.PlaceEvent(101, lockEvent(2))
	client.Head = 110
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("second poll: %s", err.Error())
	}
	if len(collector.events) != 1 || collector.events[0].Nonce != 2 {
		t.Fatalf("expected only the post-priming event, got %+v", collector.events)
	}
}

func TestScannerDeliversEachBlockOnce(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 100)
	scanner := NewScanner(client)
	collector := &eventCollector{}

	scanner.Poll(context.Background(), collector.process)
	client.PlaceEvent(105, lockEvent(1))
	client.Head = 110

	scanner.Poll(context.Background(), collector.process)
	scanner.Poll(context.Background(), collector.process)
	scanner.Poll(context.Background(), collector.process)

	if len(collector.events) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(collector.events))
	}
}

func TestScannerHeadRegressionClamp(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 100)
	scanner := NewScanner(client)
	collector := &eventCollector{}

	scanner.Poll(context.Background(), collector.process)
	client.Head = 110
	scanner.Poll(context.Background(), collector.process)

	// a lagging endpoint reports an older head; the cursor clamps down and
	// the blocks are re-covered once the head passes it again
	client.Head = 90
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll during regression: %s", err.Error())
	}

	client.PlaceEvent(95, lockEvent(5))
	client.Head = 96
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll after regression: %s", err.Error())
	}
	if len(collector.events) != 1 || collector.events[0].Nonce != 5 {
		t.Fatalf("expected the re-covered event, got %+v", collector.events)
	}
}

func TestScannerFilterErrorKeepsCursor(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 100)
	scanner := NewScanner(client)
	collector := &eventCollector{}

	scanner.Poll(context.Background(), collector.process)
	client.PlaceEvent(105, lockEvent(1))
	client.Head = 110

	client.FilterErr = errors.New("rpc unavailable")
	if err := scanner.Poll(context.Background(), collector.process); err == nil {
		t.Fatal("expected filter error")
	}

	// the failed range is retried in full on the next pass
	client.FilterErr = nil
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll after recovery: %s", err.Error())
	}
	if len(collector.events) != 1 {
		t.Fatalf("expected 1 delivery after retry, got %d", len(collector.events))
	}
}

func TestScannerAdvancesPastProcessErrors(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 100)
	scanner := NewScanner(client)
	collector := &eventCollector{err: errors.New("relay failed")}

	scanner.Poll(context.Background(), collector.process)
	client.PlaceEvent(105, lockEvent(1))
	client.Head = 110

	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll with failing process: %s", err.Error())
	}
	if len(collector.events) != 1 {
		t.Fatalf("expected the event to be attempted once, got %d", len(collector.events))
	}

	// the cursor moved past the block regardless of the failure
	collector.err = nil
	scanner.Poll(context.Background(), collector.process)
	if len(collector.events) != 1 {
		t.Fatalf("failed block was re-scanned without a rewind, %d deliveries", len(collector.events))
	}

	// the look-back rewind is what re-covers it
	if err := scanner.Rewind(context.Background(), config.LOOKBACK_BLOCKS); err != nil {
		t.Fatalf("rewind: %s", err.Error())
	}
	scanner.Poll(context.Background(), collector.process)
	if len(collector.events) != 2 {
		t.Fatalf("expected redelivery after rewind, got %d deliveries", len(collector.events))
	}
}

func TestScannerRewindClampsToGenesis(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_SEPOLIA, 5)
	scanner := NewScanner(client)
	collector := &eventCollector{}

	if err := scanner.Rewind(context.Background(), config.LOOKBACK_BLOCKS); err != nil {
		t.Fatalf("rewind near genesis: %s", err.Error())
	}

	client.PlaceEvent(3, lockEvent(1))
	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll after rewind: %s", err.Error())
	}
	if len(collector.events) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(collector.events))
	}
}

func TestScannerCoversBothDirections(t *testing.T) {
	client := bridge.NewFakeClient(config.CHAIN_POLKADOT_HUB, 100)
	scanner := NewScanner(client)
	collector := &eventCollector{}

	scanner.Poll(context.Background(), collector.process)
	client.PlaceEvent(101, unlockEvent(1))
	lock := lockEvent(2)
	lock.SourceChain = config.CHAIN_POLKADOT_HUB
	lock.DestChain = config.CHAIN_SEPOLIA
	client.PlaceEvent(102, lock)
	client.Head = 105

	if err := scanner.Poll(context.Background(), collector.process); err != nil {
		t.Fatalf("poll: %s", err.Error())
	}
	if len(collector.events) != 2 {
		t.Fatalf("expected both directions delivered, got %d", len(collector.events))
	}
}
