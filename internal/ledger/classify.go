package ledger

import "alpha-oracle/internal/domain"

// Classify converts a reported outcome price into a terminal status.
//
// A long call wins when the result reached take-profit, or when it closed
// above entry without having crossed the stop. A short call mirrors that
// downward. A result that sits on entry, or on the unfavorable side of it,
// loses.
func Classify(p *domain.Prediction, resultPrice uint64) domain.Status {
	var won bool
	switch p.Direction {
	case domain.DirectionLong:
		won = resultPrice >= p.TakeProfit ||
			(resultPrice > p.EntryPrice && resultPrice > p.StopLoss)
	case domain.DirectionShort:
		won = resultPrice <= p.TakeProfit ||
			(resultPrice < p.EntryPrice && resultPrice < p.StopLoss)
	}

	if won {
		return domain.StatusWon
	}
	return domain.StatusLost
}
