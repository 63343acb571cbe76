package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidConfiguration is returned when static tables or settings are malformed.
	// It signals a deployment defect and is fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrDealsNotFound is returned when no active deal set exists
	ErrDealsNotFound = errors.New("no active deals")

	// ErrStorageFailure is returned when the deal repository cannot be read or written
	ErrStorageFailure = errors.New("deal storage failure")
)
