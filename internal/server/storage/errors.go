package storage

import "errors"

// Common storage errors
var (
	// ErrProductNotFound indicates that catalog record was not found
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRecord indicates that record cannot be stored (empty id, broken payload)
	ErrInvalidRecord = errors.New("invalid record")
)
