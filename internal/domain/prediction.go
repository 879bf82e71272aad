package domain

// MaxAssetLen is the maximum asset symbol length in bytes.
const MaxAssetLen = 16

// MaxTimeframeHours bounds prediction lifetime to one year.
const MaxTimeframeHours = 8760

// Direction represents the direction of a price call.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Status represents the settlement state of a prediction.
// A prediction transitions ACTIVE -> {WON, LOST} exactly once.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusWon    Status = "WON"
	StatusLost   Status = "LOST"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusWon || s == StatusLost
}

// Terminal reports whether the status is a settled outcome.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// Prediction is a single directional price call under an oracle.
// Ids form the sequence 0, 1, 2, ... in creation order with no gaps.
// Corresponds to the predictions table.
type Prediction struct {
	Address      string // derived from (oracle address, prediction_id), base58
	Oracle       string // owning oracle address
	PredictionID uint64 // sequence index assigned at creation, immutable

	Asset      string    // symbol, non-empty, <= MaxAssetLen bytes
	Direction  Direction // LONG or SHORT
	EntryPrice uint64    // micro-units, > 0
	TakeProfit uint64    // micro-units, > 0
	StopLoss   uint64    // micro-units, > 0

	CreatedAt int64 // unix seconds
	ExpiresAt int64 // CreatedAt + timeframe_hours * 3600

	Status      Status
	ResultPrice uint64 // micro-units, zero while ACTIVE
	VerifiedAt  int64  // unix seconds, zero while ACTIVE
}

// Expired reports whether the prediction may be settled at the given time.
func (p *Prediction) Expired(now int64) bool {
	return now >= p.ExpiresAt
}
