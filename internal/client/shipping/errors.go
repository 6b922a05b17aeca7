package shipping

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned when the provider has no API key or base URL.
var ErrNotConfigured = errors.New("courier provider is not configured")

// CourierError is a failure of the shipping provider.
// It never blocks an order status transition.
type CourierError struct {
	Err        error
	Op         string // create_delivery, cancel_delivery, create_pickup
	Message    string
	StatusCode int
}

func (e *CourierError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("courier %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("courier %s failed with status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("courier %s failed: %v", e.Op, e.Err)
	}
}

func (e *CourierError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying may help: transport errors, 5xx, 408 and 429.
func (e *CourierError) Temporary() bool {
	if errors.Is(e.Err, ErrNotConfigured) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= 500
	}
}
