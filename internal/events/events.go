// Package events carries the ledger's append-only event feed.
// Events are emitted after the triggering operation commits; delivery is
// best-effort and never blocks or fails the operation itself.
package events

import (
	"context"

	"alpha-oracle/internal/domain"
)

// Type identifies the kind of ledger event.
type Type string

const (
	TypePredictionCreated  Type = "prediction_created"
	TypePredictionVerified Type = "prediction_verified"
)

// Event is a single ledger event.
type Event struct {
	Type         Type             `json:"type"`
	Oracle       string           `json:"oracle"`
	Authority    string           `json:"authority"`
	PredictionID uint64           `json:"prediction_id"`
	Asset        string           `json:"asset"`
	Direction    domain.Direction `json:"direction"`
	EntryPrice   uint64           `json:"entry_price,omitempty"`
	TakeProfit   uint64           `json:"take_profit,omitempty"`
	StopLoss     uint64           `json:"stop_loss,omitempty"`
	ExpiresAt    int64            `json:"expires_at,omitempty"`
	ResultPrice  uint64           `json:"result_price,omitempty"`
	Status       domain.Status    `json:"status,omitempty"`
	Timestamp    int64            `json:"timestamp"`
}

// Sink receives ledger events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// PredictionCreated builds the creation event for a stored prediction.
func PredictionCreated(o *domain.Oracle, p *domain.Prediction) Event {
	return Event{
		Type:         TypePredictionCreated,
		Oracle:       p.Oracle,
		Authority:    o.Authority,
		PredictionID: p.PredictionID,
		Asset:        p.Asset,
		Direction:    p.Direction,
		EntryPrice:   p.EntryPrice,
		TakeProfit:   p.TakeProfit,
		StopLoss:     p.StopLoss,
		ExpiresAt:    p.ExpiresAt,
		Timestamp:    p.CreatedAt,
	}
}

// PredictionVerified builds the settlement event for a settled prediction.
func PredictionVerified(o *domain.Oracle, p *domain.Prediction) Event {
	return Event{
		Type:         TypePredictionVerified,
		Oracle:       p.Oracle,
		Authority:    o.Authority,
		PredictionID: p.PredictionID,
		Asset:        p.Asset,
		Direction:    p.Direction,
		ResultPrice:  p.ResultPrice,
		Status:       p.Status,
		Timestamp:    p.VerifiedAt,
	}
}
