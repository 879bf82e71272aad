// Package stats computes read-only accuracy statistics for an oracle.
package stats

import "alpha-oracle/internal/domain"

// OracleStats is the aggregate view of an oracle's track record.
// WinRate is only meaningful when Settled > 0.
type OracleStats struct {
	Authority        string  `json:"authority"`
	Name             string  `json:"name"`
	TotalPredictions uint64  `json:"total_predictions"`
	Wins             uint64  `json:"wins"`
	Losses           uint64  `json:"losses"`
	Pending          uint64  `json:"pending"`
	Settled          uint64  `json:"settled"`
	WinRate          float64 `json:"win_rate"`
	HasSettled       bool    `json:"has_settled"`
}

// Compute derives statistics from an oracle record.
func Compute(o *domain.Oracle) OracleStats {
	s := OracleStats{
		Authority:        o.Authority,
		Name:             o.Name,
		TotalPredictions: o.TotalPredictions,
		Wins:             o.Wins,
		Losses:           o.Losses,
		Pending:          o.Pending(),
		Settled:          o.Wins + o.Losses,
	}
	s.WinRate, s.HasSettled = WinRate(o.Wins, o.Losses)
	return s
}

// WinRate returns wins/(wins+losses) and whether any prediction has settled.
// With no settled predictions the rate is 0 and the flag is false.
func WinRate(wins, losses uint64) (float64, bool) {
	settled := wins + losses
	if settled == 0 {
		return 0, false
	}
	return float64(wins) / float64(settled), true
}
