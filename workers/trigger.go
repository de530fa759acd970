package workers

import (
	"context"
	"sort"
	"strconv"
	"time"

	"monallobridge/config"
	"monallobridge/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// offsets after a trigger at which the look-back pass is repeated, covering
// relays that needed the destination chain's own confirmation delay
var triggerRescanOffsets = []time.Duration{
	6 * time.Second,
	16 * time.Second,
	30 * time.Second,
	50 * time.Second,
	80 * time.Second,
}

// RunOnce rewinds the selected chains' cursors by the look-back window and
// runs one scan+process pass. selector is a chain id or "all".
func (r *Relayer) RunOnce(ctx context.Context, selector string) error {
	chains, err := r.selectChains(selector)
	if err != nil {
		return err
	}

	var lastErr error
	for _, chainID := range chains {
		scanner := r.scanners[chainID]
		if err := scanner.Rewind(ctx, config.LOOKBACK_BLOCKS); err != nil {
			log.WithField("chain", chainID).Errorf("rewinding cursor: %s", err.Error())
			lastErr = err
			continue
		}
		if err := scanner.Poll(ctx, func(ev types.BridgeEvent) error {
			return r.Process(ctx, ev)
		}); err != nil {
			log.WithField("chain", chainID).Errorf("triggered scan failed: %s", err.Error())
			lastErr = err
		}
	}
	return lastErr
}

// TriggerWithRescans runs RunOnce immediately and again at the rescan
// offsets, in the background, so the HTTP caller is never blocked.
func (r *Relayer) TriggerWithRescans(selector string) {
	go func() {
		if err := r.RunOnce(context.Background(), selector); err != nil {
			log.Errorf("triggered relay (%s): %s", selector, err.Error())
		}

		start := time.Now()
		for _, offset := range triggerRescanOffsets {
			time.Sleep(time.Until(start.Add(offset)))
			if WorkerShutdown {
				return
			}
			if err := r.RunOnce(context.Background(), selector); err != nil {
				log.Errorf("triggered re-scan (%s): %s", selector, err.Error())
			}
		}
	}()
}

// RelayTransaction fetches the transaction's receipt from each configured
// chain, decodes its bridge events and relays them directly. Used for
// operator-driven recovery outside the look-back window.
func (r *Relayer) RelayTransaction(ctx context.Context, txHash string) error {
	for _, chainID := range r.chainIDs() {
		events, err := r.clients[chainID].TransactionEvents(ctx, txHash)
		if err != nil {
			log.WithField("chain", chainID).Warnf("fetching transaction events: %s", err.Error())
			continue
		}
		if len(events) == 0 {
			continue
		}

		var lastErr error
		for _, ev := range events {
			if err := r.Process(ctx, ev); err != nil {
				log.WithFields(log.Fields{"chain": chainID, "tx": txHash}).
					Errorf("manual relay failed: %s", err.Error())
				lastErr = err
			}
		}
		return lastErr
	}
	return errors.Errorf("no bridge event found for transaction %s on any configured chain", txHash)
}

func (r *Relayer) selectChains(selector string) ([]int, error) {
	if selector == "all" || selector == "" {
		return r.chainIDs(), nil
	}
	chainID, err := strconv.Atoi(selector)
	if err != nil {
		return nil, errors.Errorf("invalid chain selector %q", selector)
	}
	if _, ok := r.scanners[chainID]; !ok {
		return nil, errors.Errorf("chain %d is not configured", chainID)
	}
	return []int{chainID}, nil
}

func (r *Relayer) chainIDs() []int {
	ids := make([]int, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
