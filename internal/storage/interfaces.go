package storage

import (
	"context"

	"alpha-oracle/internal/domain"
)

// LedgerStore provides access to oracle and prediction records.
//
// Each method is a single atomic unit against the backing store: either all
// of its reads and writes commit together or none do, and no concurrent
// reader ever observes a partially-applied state. Cross-record invariants
// (prediction insert + counter increment, settlement + win/loss increment)
// therefore live inside the store, not in callers.
type LedgerStore interface {
	// InsertOracle adds a new oracle record. The insert is exclusive:
	// returns ErrDuplicateKey if the address is already occupied, so two
	// racing creates resolve to exactly one winner.
	InsertOracle(ctx context.Context, o *domain.Oracle) error

	// GetOracle retrieves an oracle by address. Returns ErrNotFound if not exists.
	GetOracle(ctx context.Context, address string) (*domain.Oracle, error)

	// AppendPrediction assigns the owning oracle's current total_predictions
	// as the prediction id, derives the record address, inserts the record
	// and increments the counter as one atomic unit. Concurrent appends under
	// the same oracle serialize, so ids are dense and unique.
	// PredictionID and Address on the input are ignored; the stored record
	// is returned. Returns ErrNotFound if the oracle does not exist.
	AppendPrediction(ctx context.Context, p *domain.Prediction) (*domain.Prediction, error)

	// GetPrediction retrieves a prediction by address. Returns ErrNotFound if not exists.
	GetPrediction(ctx context.Context, address string) (*domain.Prediction, error)

	// ListPredictions retrieves all predictions under an oracle,
	// ordered by prediction_id ASC.
	ListPredictions(ctx context.Context, oracleAddress string) ([]*domain.Prediction, error)

	// SettlePrediction transitions a prediction from ACTIVE to the given
	// terminal status, records the result price and verification time, and
	// increments the owning oracle's wins or losses counter, all as one
	// atomic unit. Only the first of two racing settlements observes ACTIVE;
	// the loser gets ErrAlreadySettled. Returns ErrNotFound if the
	// prediction does not exist, ErrInvalidInput if status is not terminal.
	SettlePrediction(ctx context.Context, address string, status domain.Status, resultPrice uint64, verifiedAt int64) error
}
