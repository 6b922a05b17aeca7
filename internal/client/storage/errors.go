package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no login is stored for the catalog
	ErrSessionNotFound = errors.New("catalog session not found")

	// ErrJobNotFound indicates that outbox job was not found
	ErrJobNotFound = errors.New("outbox job not found")

	// ErrQuotaExceeded indicates that the local cache is full and the write was aborted
	ErrQuotaExceeded = errors.New("local storage quota exceeded")

	// ErrUnknownCollection indicates a slot name outside the collection registry
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
