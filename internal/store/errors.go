package store

import "errors"

// Errors shared by every TradingResultStore implementation.
var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity wraps a row the database refused or that failed
	// validation before insert.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTableMissing means migrations have not been applied yet.
	ErrTableMissing = errors.New("table does not exist")

	// ErrTransactionFailed is returned when a commit fails.
	ErrTransactionFailed = errors.New("transaction failed")
)
