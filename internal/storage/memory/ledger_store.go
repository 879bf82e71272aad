package memory

import (
	"context"
	"sort"
	"sync"

	"alpha-oracle/internal/address"
	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
// A single mutex serializes every operation, so each method is atomic.
type LedgerStore struct {
	mu          sync.RWMutex
	oracles     map[string]*domain.Oracle     // keyed by address
	predictions map[string]*domain.Prediction // keyed by address
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		oracles:     make(map[string]*domain.Oracle),
		predictions: make(map[string]*domain.Prediction),
	}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// InsertOracle adds a new oracle record. Returns ErrDuplicateKey if the
// address is already occupied.
func (s *LedgerStore) InsertOracle(_ context.Context, o *domain.Oracle) error {
	if o == nil || o.Address == "" || o.Authority == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.oracles[o.Address]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	oracleCopy := *o
	s.oracles[o.Address] = &oracleCopy
	return nil
}

// GetOracle retrieves an oracle by address. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetOracle(_ context.Context, addr string) (*domain.Oracle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.oracles[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	oracleCopy := *o
	return &oracleCopy, nil
}

// AppendPrediction assigns the next prediction id, derives the address,
// inserts the record and increments the oracle counter under one lock.
func (s *LedgerStore) AppendPrediction(_ context.Context, p *domain.Prediction) (*domain.Prediction, error) {
	if p == nil || p.Oracle == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, exists := s.oracles[p.Oracle]
	if !exists {
		return nil, storage.ErrNotFound
	}

	addr, err := address.ForPrediction(o.Address, o.TotalPredictions)
	if err != nil {
		return nil, err
	}
	if _, occupied := s.predictions[addr]; occupied {
		// Counter and records disagree; refuse rather than overwrite.
		return nil, storage.ErrDuplicateKey
	}

	predictionCopy := *p
	predictionCopy.PredictionID = o.TotalPredictions
	predictionCopy.Address = addr

	s.predictions[addr] = &predictionCopy
	o.TotalPredictions++

	result := predictionCopy
	return &result, nil
}

// GetPrediction retrieves a prediction by address. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetPrediction(_ context.Context, addr string) (*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.predictions[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	predictionCopy := *p
	return &predictionCopy, nil
}

// ListPredictions retrieves all predictions under an oracle, ordered by id ASC.
func (s *LedgerStore) ListPredictions(_ context.Context, oracleAddr string) ([]*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Prediction
	for _, p := range s.predictions {
		if p.Oracle == oracleAddr {
			predictionCopy := *p
			result = append(result, &predictionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PredictionID < result[j].PredictionID
	})

	return result, nil
}

// SettlePrediction transitions ACTIVE -> status and bumps the matching
// oracle counter under one lock. Only the first settlement succeeds.
func (s *LedgerStore) SettlePrediction(_ context.Context, addr string, status domain.Status, resultPrice uint64, verifiedAt int64) error {
	if !status.Terminal() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.predictions[addr]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status != domain.StatusActive {
		return storage.ErrAlreadySettled
	}

	o, exists := s.oracles[p.Oracle]
	if !exists {
		return storage.ErrNotFound
	}

	p.Status = status
	p.ResultPrice = resultPrice
	p.VerifiedAt = verifiedAt

	if status == domain.StatusWon {
		o.Wins++
	} else {
		o.Losses++
	}

	return nil
}
