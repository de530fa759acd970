// Package store is the idempotency store: durable records of every relay
// attempt keyed by (direction, source chain, source tx hash, nonce). The
// natural-key uniqueness of Insert is the concurrency-safety mechanism that
// keeps duplicate scans from producing duplicate relay attempts.
package store

import (
	"strings"
	"sync"

	"monallobridge/types"

	"github.com/google/uuid"
)

type Store interface {
	// Get returns the record for the natural key, or nil when absent.
	Get(dir types.Direction, sourceChain int, sourceTxHash string, nonce uint64) (*types.TransferRecord, error)
	// Insert stores a new record with insert-or-ignore semantics: it reports
	// false without error when a record with the same natural key exists.
	Insert(rec *types.TransferRecord) (bool, error)
	// Update rewrites a record in place (message trail etc.); the status is
	// expected to be unchanged, MarkRelayed owns the status transition.
	Update(rec *types.TransferRecord) error
	// MarkRelayed flips the record to relayed with the destination tx hash.
	MarkRelayed(rec *types.TransferRecord, destTxHash string) error
	// LatestBySourceTx returns the highest-nonce record for the source
	// transaction, lock direction first, or nil when nothing was observed.
	LatestBySourceTx(sourceChain int, sourceTxHash string) (*types.TransferRecord, error)
	FindAllByStatus(status string) ([]*types.TransferRecord, error)
}

// MemoryStore is mostly for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.TransferRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.TransferRecord)}
}

func memKey(dir types.Direction, sourceChain int, sourceTxHash string, nonce uint64) string {
	return types.ProofKey(dir, sourceChain, strings.ToLower(sourceTxHash), nonce)
}

func (m *MemoryStore) Get(dir types.Direction, sourceChain int, sourceTxHash string, nonce uint64) (*types.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[memKey(dir, sourceChain, sourceTxHash, nonce)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) Insert(rec *types.TransferRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	cp := *rec
	m.records[key] = &cp
	return true, nil
}

func (m *MemoryStore) Update(rec *types.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[memKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)] = &cp
	return nil
}

func (m *MemoryStore) MarkRelayed(rec *types.TransferRecord, destTxHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Status = types.STATUS_RELAYED
	rec.DestTxHash = destTxHash
	cp := *rec
	m.records[memKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)] = &cp
	return nil
}

func (m *MemoryStore) LatestBySourceTx(sourceChain int, sourceTxHash string) (*types.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dir := range []types.Direction{types.DIRECTION_LOCK, types.DIRECTION_UNLOCK} {
		var best *types.TransferRecord
		for _, rec := range m.records {
			if rec.Direction != dir || rec.SourceChain != sourceChain ||
				!strings.EqualFold(rec.SourceTxHash, sourceTxHash) {
				continue
			}
			if best == nil || rec.Nonce > best.Nonce {
				best = rec
			}
		}
		if best != nil {
			cp := *best
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindAllByStatus(status string) ([]*types.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := make([]*types.TransferRecord, 0)
	for _, rec := range m.records {
		if rec.Status == status {
			cp := *rec
			recs = append(recs, &cp)
		}
	}
	return recs, nil
}
