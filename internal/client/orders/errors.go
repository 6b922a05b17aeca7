package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/shopkeeper/internal/validation"
)

var (
	// ErrOrderNotFound is returned when no order with the given id is stored locally.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when the state machine does not allow the status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError rejects a draft before anything is written.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// WarningKind classifies a non-fatal problem the operator should look at
type WarningKind string

const (
	WarningSync          WarningKind = "sync"           // order saved locally, cloud not updated
	WarningCourierBook   WarningKind = "courier_book"   // Confirmed order has no booking yet
	WarningCourierCancel WarningKind = "courier_cancel" // booking could not be cancelled
	WarningPickup        WarningKind = "pickup"
	WarningManual        WarningKind = "manual_follow_up" // retries exhausted
)

// Warning is a non-fatal operator-visible problem.
type Warning struct {
	Err     error       `json:"-"`
	Kind    WarningKind `json:"kind"`
	OrderID string      `json:"orderId"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("[%s] order %s: %s: %v", w.Kind, w.OrderID, w.Message, w.Err)
	}
	return fmt.Sprintf("[%s] order %s: %s", w.Kind, w.OrderID, w.Message)
}
