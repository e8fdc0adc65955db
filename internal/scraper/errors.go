package scraper

import "errors"

var (
	// ErrAlreadyRunning is returned when a scrape is started while another
	// one is still in progress.
	ErrAlreadyRunning = errors.New("another scraper is working now")

	// ErrEmptyResponse is returned when a listing page has no body.
	ErrEmptyResponse = errors.New("the resource sent an empty response")

	// ErrMalformedListing is returned when a bulletin block lacks its date
	// or link.
	ErrMalformedListing = errors.New("malformed listing page")

	// ErrSectionNotFound is returned when a bulletin has no metric ton section.
	ErrSectionNotFound = errors.New("metric ton section not found")
)
