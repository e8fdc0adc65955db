package service

import "errors"

// Sentinel errors returned by the trading service. The API layer maps
// them to HTTP status codes; callers check them with errors.Is.
var (
	// ErrInvalidFilter is the parent of every query validation error.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrMissingFilter indicates that none of the instrument identifiers
	// was given to a trading results query.
	// API layer should map this to HTTP 404 Not Found.
	ErrMissingFilter = errors.New("at least one of the trading parameters must be filled in")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = wrapInvalid("the limit must be a positive number")

	// ErrInvalidDays indicates a non-positive number of trading days.
	ErrInvalidDays = wrapInvalid("the days must be a positive number")

	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = wrapInvalid("invalid date")
)

// filterError lets specific validation errors match ErrInvalidFilter.
type filterError struct{ msg string }

func (e *filterError) Error() string        { return e.msg }
func (e *filterError) Is(target error) bool { return target == ErrInvalidFilter }

func wrapInvalid(msg string) error { return &filterError{msg: msg} }
