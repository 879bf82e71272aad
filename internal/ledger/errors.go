package ledger

import "errors"

// Ledger errors. All are terminal for the triggering call; no operation
// retries internally, and a failed operation leaves prior state unchanged.
var (
	// ErrAlreadyExists is returned when initializing an oracle whose
	// address is already occupied.
	ErrAlreadyExists = errors.New("oracle already exists")

	// ErrUnauthorized is returned when the caller is not the oracle's authority.
	ErrUnauthorized = errors.New("caller is not the oracle authority")

	// ErrInvalidArgument is returned for out-of-range strings,
	// non-positive prices, bad directions and bad timeframes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotYetExpired is returned when verifying before the expiry time.
	ErrNotYetExpired = errors.New("prediction has not expired yet")

	// ErrAlreadySettled is returned when verifying a prediction that
	// already holds a terminal status. Settlement is single-shot.
	ErrAlreadySettled = errors.New("prediction already settled")

	// ErrOverflow is returned when a counter increment would wrap.
	ErrOverflow = errors.New("counter overflow")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)
