package postgres

import (
	"context"
	"fmt"

	"alpha-oracle/internal/address"
	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
//
// Exclusive creation relies on primary key constraints; the cross-record
// operations run in a single transaction with a row lock on the oracle, so
// the counter and the dependent record commit together.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// InsertOracle adds a new oracle record. Returns ErrDuplicateKey if the
// address (or authority) already exists.
func (s *LedgerStore) InsertOracle(ctx context.Context, o *domain.Oracle) error {
	if o == nil || o.Address == "" || o.Authority == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO oracles (
			address, authority, name,
			total_predictions, wins, losses, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		o.Address, o.Authority, o.Name,
		o.TotalPredictions, o.Wins, o.Losses, o.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert oracle: %w", err)
	}
	return nil
}

// GetOracle retrieves an oracle by address. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetOracle(ctx context.Context, addr string) (*domain.Oracle, error) {
	query := `
		SELECT address, authority, name,
		       total_predictions, wins, losses, created_at
		FROM oracles
		WHERE address = $1
	`

	var o domain.Oracle
	err := s.pool.QueryRow(ctx, query, addr).Scan(
		&o.Address, &o.Authority, &o.Name,
		&o.TotalPredictions, &o.Wins, &o.Losses, &o.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get oracle: %w", err)
	}
	return &o, nil
}

// AppendPrediction assigns the next prediction id under a row lock on the
// oracle, inserts the record and increments the counter in one transaction.
func (s *LedgerStore) AppendPrediction(ctx context.Context, p *domain.Prediction) (*domain.Prediction, error) {
	if p == nil || p.Oracle == "" {
		return nil, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var total uint64
	err = tx.QueryRow(ctx,
		`SELECT total_predictions FROM oracles WHERE address = $1 FOR UPDATE`,
		p.Oracle,
	).Scan(&total)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock oracle: %w", err)
	}

	addr, err := address.ForPrediction(p.Oracle, total)
	if err != nil {
		return nil, err
	}

	stored := *p
	stored.PredictionID = total
	stored.Address = addr

	_, err = tx.Exec(ctx, `
		INSERT INTO predictions (
			address, oracle_address, prediction_id,
			asset, direction, entry_price, take_profit, stop_loss,
			created_at, expires_at, status, result_price, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		stored.Address, stored.Oracle, stored.PredictionID,
		stored.Asset, string(stored.Direction), stored.EntryPrice, stored.TakeProfit, stored.StopLoss,
		stored.CreatedAt, stored.ExpiresAt, string(stored.Status), stored.ResultPrice, stored.VerifiedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert prediction: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE oracles SET total_predictions = total_predictions + 1 WHERE address = $1`,
		p.Oracle,
	)
	if err != nil {
		return nil, fmt.Errorf("increment total_predictions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &stored, nil
}

// GetPrediction retrieves a prediction by address. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetPrediction(ctx context.Context, addr string) (*domain.Prediction, error) {
	query := `
		SELECT address, oracle_address, prediction_id,
		       asset, direction, entry_price, take_profit, stop_loss,
		       created_at, expires_at, status, result_price, verified_at
		FROM predictions
		WHERE address = $1
	`

	p, err := scanPrediction(s.pool.QueryRow(ctx, query, addr))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

// ListPredictions retrieves all predictions under an oracle, ordered by id ASC.
func (s *LedgerStore) ListPredictions(ctx context.Context, oracleAddr string) ([]*domain.Prediction, error) {
	query := `
		SELECT address, oracle_address, prediction_id,
		       asset, direction, entry_price, take_profit, stop_loss,
		       created_at, expires_at, status, result_price, verified_at
		FROM predictions
		WHERE oracle_address = $1
		ORDER BY prediction_id ASC
	`

	rows, err := s.pool.Query(ctx, query, oracleAddr)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return result, nil
}

// SettlePrediction transitions ACTIVE -> status and bumps the matching
// oracle counter in one transaction. The row lock on the prediction
// serializes racing settlements; only the first observes ACTIVE.
func (s *LedgerStore) SettlePrediction(ctx context.Context, addr string, status domain.Status, resultPrice uint64, verifiedAt int64) error {
	if !status.Terminal() {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var oracleAddr, current string
	err = tx.QueryRow(ctx,
		`SELECT oracle_address, status FROM predictions WHERE address = $1 FOR UPDATE`,
		addr,
	).Scan(&oracleAddr, &current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock prediction: %w", err)
	}
	if domain.Status(current) != domain.StatusActive {
		return storage.ErrAlreadySettled
	}

	_, err = tx.Exec(ctx, `
		UPDATE predictions
		SET status = $2, result_price = $3, verified_at = $4
		WHERE address = $1
	`, addr, string(status), resultPrice, verifiedAt)
	if err != nil {
		return fmt.Errorf("update prediction: %w", err)
	}

	counter := "losses"
	if status == domain.StatusWon {
		counter = "wins"
	}
	_, err = tx.Exec(ctx,
		fmt.Sprintf(`UPDATE oracles SET %s = %s + 1 WHERE address = $1`, counter, counter),
		oracleAddr,
	)
	if err != nil {
		return fmt.Errorf("increment %s: %w", counter, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*domain.Prediction, error) {
	var p domain.Prediction
	var direction, status string
	err := row.Scan(
		&p.Address, &p.Oracle, &p.PredictionID,
		&p.Asset, &direction, &p.EntryPrice, &p.TakeProfit, &p.StopLoss,
		&p.CreatedAt, &p.ExpiresAt, &status, &p.ResultPrice, &p.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Direction = domain.Direction(direction)
	p.Status = domain.Status(status)
	return &p, nil
}
