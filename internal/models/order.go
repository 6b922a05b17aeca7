package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinOrderWeight is the lower bound of Order.TotalWeight (kg).
const MinOrderWeight = 0.1

// OrderStatus is a state of the fulfillment state machine.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusConfirmed OrderStatus = "Confirmed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusArchived  OrderStatus = "Archived"
	StatusCancelled OrderStatus = "Cancelled"
)

// transitions lists the forward edges of Pending ⇄ Confirmed → Shipped → Delivered.
// Archived and Cancelled are reachable from everywhere except Cancelled.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed},
	StatusConfirmed: {StatusPending, StatusShipped},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusArchived:  {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusArchived, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s == StatusCancelled {
		return false
	}
	if next == StatusCancelled || next == StatusArchived {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Customer is the buyer's contact and delivery data.
type Customer struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=6"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	Province string `json:"province,omitempty"`
}

// OrderItem is one cart line.
type OrderItem struct {
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name,omitempty"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Weight    float64         `json:"weight"`
	Quantity  int             `json:"quantity" validate:"min=1"`
}

// Order is created Pending by the commit pipeline and only changes status through it.
type Order struct {
	Date              time.Time       `json:"date"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shippingCost"`
	Total             decimal.Decimal `json:"total"`
	Customer          Customer        `json:"customer"`
	ID                string          `json:"id"`
	Status            OrderStatus     `json:"status"`
	PaymentMethod     string          `json:"paymentMethod,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CourierDeliveryID string          `json:"courierDeliveryId,omitempty"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	Items             []OrderItem     `json:"items"`
	TotalWeight       float64         `json:"totalWeight"`
	CourierCreatedAt  int64           `json:"courierCreatedAt,omitempty"`
	LastUpdated       int64           `json:"lastUpdated"`
	IsRead            bool            `json:"isRead"`
}

// HasBooking reports whether a courier delivery exists for the order.
func (o *Order) HasBooking() bool {
	return o.CourierDeliveryID != ""
}

// ClearBooking forgets the courier delivery.
func (o *Order) ClearBooking() {
	o.CourierDeliveryID = ""
	o.TrackingNumber = ""
	o.CourierCreatedAt = 0
}

// ItemCount returns the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
