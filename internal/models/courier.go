package models

// CourierJobKind is the side effect a courier job requests.
type CourierJobKind string

const (
	CourierJobBook   CourierJobKind = "book"
	CourierJobCancel CourierJobKind = "cancel"
)

// CourierJob is one durable outbox entry produced by an order status transition.
type CourierJob struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"orderId"`
	Kind          CourierJobKind `json:"kind"`
	DeliveryID    string         `json:"deliveryId,omitempty"` // for cancel jobs
	LastError     string         `json:"lastError,omitempty"`
	Attempts      int            `json:"attempts"`
	CreatedAt     int64          `json:"createdAt"`
	NextAttemptAt int64          `json:"nextAttemptAt"`
}
