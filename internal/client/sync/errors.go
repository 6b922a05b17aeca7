package sync

import (
	"errors"
	"fmt"
	"strings"
)

// Store names used in warnings and metrics
const (
	StoreBackup = "backup"
	StoreRemote = "remote"
)

// ErrMissingID is returned when a record without id is written.
var ErrMissingID = errors.New("record id is required")

// RemoteUnavailableError reports a timeout, transport failure or non-2xx answer
// from the backup or remote store. It is never fatal to local state.
type RemoteUnavailableError struct {
	Err        error
	Store      string
	Collection string
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable for %s: %v", e.Store, e.Collection, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// SyncFailure names one record that did not reach one store.
type SyncFailure struct {
	Err        error  `json:"-"`
	Collection string `json:"collection"`
	RecordID   string `json:"recordId,omitempty"` // пусто для snapshot коллекции целиком
	Store      string `json:"store"`
}

func (f SyncFailure) String() string {
	target := f.Collection
	if f.RecordID != "" {
		target += "/" + f.RecordID
	}
	return fmt.Sprintf("%s -> %s: %v", target, f.Store, f.Err)
}

// PartialSyncError is returned when some fan-out targets were reached and others were not.
// Local state is already applied and is not rolled back.
type PartialSyncError struct {
	Failures  []SyncFailure
	Succeeded int
}

func (e *PartialSyncError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("partial sync: %d failed, %d succeeded: %s",
		len(e.Failures), e.Succeeded, strings.Join(parts, "; "))
}

func (e *PartialSyncError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Merge appends the failures of other. Nil receivers and arguments are handled.
func (e *PartialSyncError) Merge(other *PartialSyncError) *PartialSyncError {
	if other == nil {
		return e
	}
	if e == nil {
		return other
	}
	e.Failures = append(e.Failures, other.Failures...)
	e.Succeeded += other.Succeeded
	return e
}

// asError returns nil when nothing failed so callers never get a typed nil.
func (e *PartialSyncError) asError() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	return e
}
