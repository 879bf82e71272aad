package clickhouse

import (
	"context"
	"fmt"

	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/events"
)

// EventStore records the ledger event feed in ClickHouse for analytics.
// The table is append-only; rows are never updated or deleted.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check: the store plugs into the ledger as a sink.
var _ events.Sink = (*EventStore)(nil)

// Publish appends one event row.
func (s *EventStore) Publish(ctx context.Context, e events.Event) error {
	query := `
		INSERT INTO prediction_events (
			event_type, oracle, authority, prediction_id,
			asset, direction, entry_price, take_profit, stop_loss,
			expires_at, result_price, status, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		string(e.Type), e.Oracle, e.Authority, e.PredictionID,
		e.Asset, string(e.Direction), e.EntryPrice, e.TakeProfit, e.StopLoss,
		e.ExpiresAt, e.ResultPrice, string(e.Status), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert prediction event: %w", err)
	}
	return nil
}

// GetByOracle retrieves all events for an oracle, ordered by
// (prediction_id, timestamp) ASC.
func (s *EventStore) GetByOracle(ctx context.Context, oracle string) ([]*events.Event, error) {
	query := `
		SELECT event_type, oracle, authority, prediction_id,
		       asset, direction, entry_price, take_profit, stop_loss,
		       expires_at, result_price, status, timestamp
		FROM prediction_events
		WHERE oracle = ?
		ORDER BY prediction_id ASC, timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, oracle)
	if err != nil {
		return nil, fmt.Errorf("query prediction events: %w", err)
	}
	defer rows.Close()

	var result []*events.Event
	for rows.Next() {
		var e events.Event
		var eventType, direction, status string
		err := rows.Scan(
			&eventType, &e.Oracle, &e.Authority, &e.PredictionID,
			&e.Asset, &direction, &e.EntryPrice, &e.TakeProfit, &e.StopLoss,
			&e.ExpiresAt, &e.ResultPrice, &status, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prediction event: %w", err)
		}
		e.Type = events.Type(eventType)
		e.Direction = domain.Direction(direction)
		e.Status = domain.Status(status)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction events: %w", err)
	}
	return result, nil
}
