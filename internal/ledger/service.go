// Package ledger implements the prediction ledger: oracle initialization,
// authority-gated prediction creation, and open settlement after expiry.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"alpha-oracle/internal/address"
	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/events"
	"alpha-oracle/internal/storage"
)

// Config configures a ledger Service.
type Config struct {
	Store storage.LedgerStore

	// Sinks receive events after an operation commits. Optional.
	Sinks []events.Sink

	// Now supplies the current unix time in seconds. Defaults to time.Now.
	Now func() int64

	Logger zerolog.Logger
}

// Service hosts the three ledger operations. It validates inputs, enforces
// the expiry gate and classification rule, and delegates atomicity to the
// store.
type Service struct {
	store  storage.LedgerStore
	sinks  []events.Sink
	now    func() int64
	logger zerolog.Logger
}

// New creates a ledger service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger: store is required")
	}
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Service{
		store:  cfg.Store,
		sinks:  cfg.Sinks,
		now:    now,
		logger: cfg.Logger.With().Str("component", "ledger").Logger(),
	}, nil
}

// InitializeOracle creates the oracle record for an authority. The address
// derives from the authority alone, so creation is one-time: a second call
// for the same authority fails with ErrAlreadyExists.
func (s *Service) InitializeOracle(ctx context.Context, authority, name string) (*domain.Oracle, error) {
	if name == "" || len(name) > domain.MaxNameLen {
		return nil, fmt.Errorf("%w: name must be 1..%d bytes", ErrInvalidArgument, domain.MaxNameLen)
	}

	addr, err := address.ForOracle(authority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	o := &domain.Oracle{
		Address:   addr,
		Authority: authority,
		Name:      name,
		CreatedAt: s.now(),
	}

	if err := s.store.InsertOracle(ctx, o); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert oracle: %w", err)
	}

	s.logger.Info().
		Str("oracle", o.Address).
		Str("authority", o.Authority).
		Msg("oracle initialized")

	return o, nil
}

// CreatePredictionRequest carries the fields of a new prediction.
// Prices are fixed-point micro-units.
type CreatePredictionRequest struct {
	Asset          string
	Direction      domain.Direction
	EntryPrice     uint64
	TakeProfit     uint64
	StopLoss       uint64
	TimeframeHours int
}

func (r *CreatePredictionRequest) validate() error {
	if r.Asset == "" || len(r.Asset) > domain.MaxAssetLen {
		return fmt.Errorf("%w: asset must be 1..%d bytes", ErrInvalidArgument, domain.MaxAssetLen)
	}
	if !r.Direction.IsValid() {
		return fmt.Errorf("%w: direction must be LONG or SHORT", ErrInvalidArgument)
	}
	if r.EntryPrice == 0 || r.TakeProfit == 0 || r.StopLoss == 0 {
		return fmt.Errorf("%w: prices must be positive", ErrInvalidArgument)
	}
	if r.TimeframeHours <= 0 || r.TimeframeHours > domain.MaxTimeframeHours {
		return fmt.Errorf("%w: timeframe must be 1..%d hours", ErrInvalidArgument, domain.MaxTimeframeHours)
	}
	return nil
}

// CreatePrediction appends a prediction under the caller's oracle. Only the
// oracle's authority may create; the record's id and address are assigned by
// the store together with the counter increment. Creation records a claim
// only, no price lookups happen here.
func (s *Service) CreatePrediction(ctx context.Context, caller string, req CreatePredictionRequest) (*domain.Prediction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	oracleAddr, err := address.ForOracle(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	o, err := s.store.GetOracle(ctx, oracleAddr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get oracle: %w", err)
	}
	if o.Authority != caller {
		return nil, ErrUnauthorized
	}
	if o.TotalPredictions == math.MaxUint64 {
		return nil, ErrOverflow
	}

	createdAt := s.now()
	p := &domain.Prediction{
		Oracle:     o.Address,
		Asset:      req.Asset,
		Direction:  req.Direction,
		EntryPrice: req.EntryPrice,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt + int64(req.TimeframeHours)*3600,
		Status:     domain.StatusActive,
	}

	stored, err := s.store.AppendPrediction(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("append prediction: %w", err)
	}

	s.logger.Info().
		Str("oracle", stored.Oracle).
		Uint64("prediction_id", stored.PredictionID).
		Str("asset", stored.Asset).
		Str("direction", stored.Direction.String()).
		Msg("prediction created")

	s.emit(ctx, events.PredictionCreated(o, stored))
	return stored, nil
}

// VerifyPrediction settles a prediction against a reported outcome price.
// Any caller may settle once the expiry time has elapsed; the transition is
// single-shot and immutable, and the matching win/loss counter commits with
// it.
func (s *Service) VerifyPrediction(ctx context.Context, oracleAddress string, predictionID uint64, resultPrice uint64) (*domain.Prediction, error) {
	if resultPrice == 0 {
		return nil, fmt.Errorf("%w: result price must be positive", ErrInvalidArgument)
	}

	predAddr, err := address.ForPrediction(oracleAddress, predictionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	p, err := s.store.GetPrediction(ctx, predAddr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	if p.Status != domain.StatusActive {
		return nil, ErrAlreadySettled
	}

	now := s.now()
	if !p.Expired(now) {
		return nil, ErrNotYetExpired
	}

	status := Classify(p, resultPrice)
	if err := s.store.SettlePrediction(ctx, predAddr, status, resultPrice, now); err != nil {
		if errors.Is(err, storage.ErrAlreadySettled) {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("settle prediction: %w", err)
	}

	p.Status = status
	p.ResultPrice = resultPrice
	p.VerifiedAt = now

	s.logger.Info().
		Str("oracle", p.Oracle).
		Uint64("prediction_id", p.PredictionID).
		Uint64("result_price", resultPrice).
		Str("status", status.String()).
		Msg("prediction settled")

	if o, err := s.store.GetOracle(ctx, p.Oracle); err == nil {
		s.emit(ctx, events.PredictionVerified(o, p))
	}

	return p, nil
}

// GetOracle retrieves the oracle record for an authority.
func (s *Service) GetOracle(ctx context.Context, authority string) (*domain.Oracle, error) {
	addr, err := address.ForOracle(authority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	o, err := s.store.GetOracle(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get oracle: %w", err)
	}
	return o, nil
}

// ListPredictions retrieves all predictions for an authority in id order.
func (s *Service) ListPredictions(ctx context.Context, authority string) ([]*domain.Prediction, error) {
	addr, err := address.ForOracle(authority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return s.store.ListPredictions(ctx, addr)
}

// emit publishes to all sinks post-commit. Sink failures are logged, never
// surfaced: the operation already committed.
func (s *Service) emit(ctx context.Context, e events.Event) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, e); err != nil {
			s.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("event sink failed")
		}
	}
}
