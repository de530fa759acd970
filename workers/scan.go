package workers

import (
	"context"
	"strconv"
	"sync"
	"time"

	"monallobridge/bridge"
	"monallobridge/config"
	"monallobridge/metrics"
	"monallobridge/types"

	log "github.com/sirupsen/logrus"
)

var scanDirections = []types.Direction{types.DIRECTION_LOCK, types.DIRECTION_UNLOCK}

// Scanner incrementally scans one chain for bridge events, keeping an
// in-memory cursor per direction. Cursors are not persisted: a restart
// re-derives them from the live head, with the look-back re-scan as the
// safety net for anything missed in between.
type Scanner struct {
	client bridge.Client

	mu      sync.Mutex
	cursors map[types.Direction]uint64
	primed  map[types.Direction]bool
}

func NewScanner(client bridge.Client) *Scanner {
	return &Scanner{
		client:  client,
		cursors: make(map[types.Direction]uint64),
		primed:  make(map[types.Direction]bool),
	}
}

// Poll runs one scan pass over both directions. The TryLock is the
// re-entrancy guard: a slow scan is not restarted by the next timer tick.
func (s *Scanner) Poll(ctx context.Context, process func(types.BridgeEvent) error) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	for _, dir := range scanDirections {
		if err := s.scanDirection(ctx, dir, process); err != nil {
			return err
		}
	}
	return nil
}

// Rewind sets both cursors to head − lookback, so the next Poll re-covers
// recent blocks. Used by triggered runs and for failed-relay recovery.
func (s *Scanner) Rewind(ctx context.Context, lookback uint64) error {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	var cursor uint64
	if head > lookback {
		cursor = head - lookback
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dir := range scanDirections {
		s.cursors[dir] = cursor
		s.primed[dir] = true
	}
	return nil
}

func (s *Scanner) scanDirection(ctx context.Context, dir types.Direction, process func(types.BridgeEvent) error) error {
	chainID := s.client.ChainID()

	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	if !s.primed[dir] {
		// first pass only primes the cursor from the live head
		s.cursors[dir] = head
		s.primed[dir] = true
		return nil
	}

	metrics.ScansTotal.WithLabelValues(strconv.Itoa(chainID), string(dir)).Inc()

	cursor := s.cursors[dir]
	fromBlock := cursor + 1
	if fromBlock > head {
		// empty range; clamp only when the reported head regressed
		if head < cursor {
			log.WithFields(log.Fields{"chain": chainID, "direction": dir}).
				Warnf("chain head regressed from %d to %d, clamping cursor", cursor, head)
			s.cursors[dir] = head
		}
		return nil
	}

	events, err := s.client.FilterEvents(ctx, dir, fromBlock, head)
	if err != nil {
		// query failed, cursor unchanged; next tick retries the same range
		return err
	}

	for _, ev := range events {
		metrics.EventsObserved.WithLabelValues(strconv.Itoa(chainID), string(dir)).Inc()
		if err := process(ev); err != nil {
			// the cursor still advances past this block: a poison event
			// cannot stall the scanner, the look-back re-scan compensates
			log.WithFields(log.Fields{
				"chain": chainID,
				"tx":    ev.SourceTxHash,
				"nonce": ev.Nonce,
			}).Errorf("relay failed: %s", err.Error())
		}
	}

	s.cursors[dir] = head
	return nil
}

// Worker_scanChain is the continuous mode: one timer loop per chain driving
// the scan+process pipeline until shutdown.
func (r *Relayer) Worker_scanChain(chainID int) {
	interval := time.Duration(config.Config.Relayer.PollInterval) * time.Second

	for !WorkerShutdown {
		time.Sleep(interval)

		if err := r.ScanChain(context.Background(), chainID); err != nil {
			log.WithField("chain", chainID).Errorf("scan pass failed: %s", err.Error())
		}
	}
}
