package store

import "errors"

// Common store errors
var (
	// ErrNoDocuments is returned when a lookup matches no document
	ErrNoDocuments = errors.New("no documents in result")

	// ErrInvalidArgument is returned when a document or filter cannot be
	// encoded or is rejected as malformed by the store
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when the store connection is closed
	ErrClosed = errors.New("store is closed")
)

// IsNoDocuments checks if the error is a no documents error
func IsNoDocuments(err error) bool {
	return errors.Is(err, ErrNoDocuments)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
