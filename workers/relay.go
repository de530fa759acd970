package workers

import (
	"context"
	"time"

	"monallobridge/EVMRPC"
	"monallobridge/bridge"
	"monallobridge/config"
	"monallobridge/metrics"
	"monallobridge/signer"
	"monallobridge/store"
	"monallobridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// WorkerShutdown signals all worker loops to exit (set on HTTP shutdown).
var WorkerShutdown bool

// Relayer drives the scan → verify → authorize → submit pipeline for both
// configured chains and both directions.
type Relayer struct {
	clients  map[int]bridge.Client
	scanners map[int]*Scanner
	store    store.Store
	signer   signer.Signer
}

func NewRelayer(st store.Store, sg signer.Signer, clients map[int]bridge.Client) *Relayer {
	scanners := make(map[int]*Scanner, len(clients))
	for chainID, client := range clients {
		scanners[chainID] = NewScanner(client)
	}
	return &Relayer{
		clients:  clients,
		scanners: scanners,
		store:    st,
		signer:   sg,
	}
}

// ScanChain runs one scan+process pass for a chain, both directions.
func (r *Relayer) ScanChain(ctx context.Context, chainID int) error {
	scanner, ok := r.scanners[chainID]
	if !ok {
		return errors.Errorf("no scanner for chain %d", chainID)
	}
	return scanner.Poll(ctx, func(ev types.BridgeEvent) error {
		return r.Process(ctx, ev)
	})
}

// Process produces the destination-chain effect for one event exactly once.
// Any failure after the pending insert leaves the record pending; the event
// is picked up again by a look-back re-scan or a manual relay.
func (r *Relayer) Process(ctx context.Context, ev types.BridgeEvent) error {
	logger := log.WithFields(log.Fields{
		"direction": ev.Direction,
		"source":    ev.SourceChain,
		"dest":      ev.DestChain,
		"tx":        ev.SourceTxHash,
		"nonce":     ev.Nonce,
	})

	rec, err := r.store.Get(ev.Direction, ev.SourceChain, ev.SourceTxHash, ev.Nonce)
	if err != nil {
		return errors.Wrap(err, "looking up transfer record")
	}
	if rec != nil && rec.Status == types.STATUS_RELAYED {
		logger.Debug("already relayed, skipping")
		return nil
	}
	if rec == nil {
		rec = types.NewTransferRecord(ev, time.Now().Unix())
		// insert-or-ignore: a concurrent duplicate is absorbed by the
		// unique natural key
		if _, err := r.store.Insert(rec); err != nil {
			return errors.Wrap(err, "inserting transfer record")
		}
	}

	destClient, ok := r.clients[ev.DestChain]
	if !ok {
		// configuration error, not a protocol fault: leave pending
		logger.Warnf("no client for destination chain %d", ev.DestChain)
		metrics.RelayErrors.WithLabelValues(string(ev.Direction), "config").Inc()
		return nil
	}

	digest := signer.AuthorizationDigest(
		common.HexToAddress(ev.Recipient),
		ev.Amount,
		ev.SourceChain,
		common.HexToHash(ev.SourceTxHash),
		ev.Nonce,
	)
	sig, err := r.signer.Sign(digest)
	if err != nil {
		metrics.RelayErrors.WithLabelValues(string(ev.Direction), "sign").Inc()
		return errors.Wrap(err, "signing authorization digest")
	}

	var destTxHash string
	switch ev.Direction {
	case types.DIRECTION_LOCK:
		wrapped := config.WrappedToken(ev.DestChain, ev.SourceChain)
		if wrapped == "" {
			logger.Warnf("no wrapped token configured for %d_%d", ev.DestChain, ev.SourceChain)
			metrics.RelayErrors.WithLabelValues(string(ev.Direction), "config").Inc()
			return nil
		}
		destTxHash, err = destClient.SubmitMint(ctx, wrapped, ev, sig)
	case types.DIRECTION_UNLOCK:
		destTxHash, err = destClient.SubmitRelease(ctx, ev, sig)
	default:
		return errors.Errorf("unknown direction %q", ev.Direction)
	}

	if errors.Is(err, bridge.ErrNonceProcessed) {
		// the destination agrees the effect already happened; record it
		logger.Infof("destination already processed nonce, marking relayed")
		metrics.RelaysConfirmed.WithLabelValues(string(ev.Direction)).Inc()
		return errors.Wrap(r.store.MarkRelayed(rec, destTxHash), "marking transfer relayed")
	}
	if err != nil {
		metrics.RelayErrors.WithLabelValues(string(ev.Direction), "submit").Inc()
		r.appendMessage(rec, err.Error())
		return errors.Wrap(err, "submitting destination call")
	}

	if err := r.store.MarkRelayed(rec, destTxHash); err != nil {
		return errors.Wrap(err, "marking transfer relayed")
	}
	metrics.RelaysConfirmed.WithLabelValues(string(ev.Direction)).Inc()
	logger.Infof("relayed: %s -> %s", ev.SourceTxHash, destTxHash)
	return nil
}

func (r *Relayer) appendMessage(rec *types.TransferRecord, msg string) {
	if rec.Message == "" {
		rec.Message = msg
	} else {
		rec.Message += "; " + msg
	}
	if err := r.store.Update(rec); err != nil {
		log.Errorf("error saving transfer record message: %s", err.Error())
	}
}

// Connect runs the endpoint liveness probe for every configured chain and
// logs the head. A failing chain is transient: scans retry on the next tick.
func (r *Relayer) Connect() {
	for chainID := range r.clients {
		head, err := EVMRPC.Probe(chainID)
		if err != nil {
			log.WithField("chain", chainID).Warnf("connection probe failed: %s", err.Error())
			continue
		}
		log.WithField("chain", chainID).Infof("%s connected, block %d", config.EVMChains[chainID].Name, head)
	}
}
