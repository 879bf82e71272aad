package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// at an address that already exists. Records are create-only.
	ErrDuplicateKey = errors.New("duplicate key: record addresses are create-only")

	// ErrAlreadySettled is returned when settling a prediction whose
	// status is no longer ACTIVE. Settlement is single-shot.
	ErrAlreadySettled = errors.New("prediction already settled")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
