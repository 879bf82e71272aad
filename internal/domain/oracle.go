package domain

// MaxNameLen is the maximum oracle display name length in bytes.
const MaxNameLen = 32

// Oracle is the aggregate record for a single authority.
// Created once, never deleted; counters only ever increase.
// Corresponds to the oracles table.
type Oracle struct {
	Address          string // derived from authority, base58
	Authority        string // base58 32-byte key, immutable
	Name             string // display label, <= MaxNameLen bytes
	TotalPredictions uint64 // incremented by 1 per created prediction
	Wins             uint64
	Losses           uint64
	CreatedAt        int64 // unix seconds
}

// Pending returns the number of predictions still awaiting settlement.
// Invariant: Wins + Losses <= TotalPredictions.
func (o *Oracle) Pending() uint64 {
	return o.TotalPredictions - o.Wins - o.Losses
}
