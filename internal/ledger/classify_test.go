package ledger

import (
	"testing"

	"alpha-oracle/internal/domain"
)

func TestClassify(t *testing.T) {
	// Long: entry 97000, TP 100000, SL 94000 (micro-units).
	long := &domain.Prediction{
		Direction:  domain.DirectionLong,
		EntryPrice: 97_000_000_000,
		TakeProfit: 100_000_000_000,
		StopLoss:   94_000_000_000,
	}
	// Short: entry 2700, TP 2500, SL 3000.
	short := &domain.Prediction{
		Direction:  domain.DirectionShort,
		EntryPrice: 2_700_000_000,
		TakeProfit: 2_500_000_000,
		StopLoss:   3_000_000_000,
	}

	tests := []struct {
		name   string
		p      *domain.Prediction
		result uint64
		want   domain.Status
	}{
		{"long hits take profit", long, 101_000_000_000, domain.StatusWon},
		{"long at take profit exactly", long, 100_000_000_000, domain.StatusWon},
		{"long above entry below tp", long, 98_000_000_000, domain.StatusWon},
		{"long exactly at entry", long, 97_000_000_000, domain.StatusLost},
		{"long below entry above sl", long, 95_000_000_000, domain.StatusLost},
		{"long at stop loss", long, 94_000_000_000, domain.StatusLost},
		{"long below stop loss", long, 90_000_000_000, domain.StatusLost},

		{"short hits take profit", short, 2_400_000_000, domain.StatusWon},
		{"short at take profit exactly", short, 2_500_000_000, domain.StatusWon},
		{"short below entry above tp", short, 2_600_000_000, domain.StatusWon},
		{"short exactly at entry", short, 2_700_000_000, domain.StatusLost},
		{"short above entry below sl", short, 2_900_000_000, domain.StatusLost},
		{"short at stop loss", short, 3_000_000_000, domain.StatusLost},
		{"short above stop loss", short, 3_100_000_000, domain.StatusLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.p, tt.result); got != tt.want {
				t.Errorf("Classify(%d) = %s, want %s", tt.result, got, tt.want)
			}
		})
	}
}
