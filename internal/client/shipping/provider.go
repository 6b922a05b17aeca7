// Package shipping is the courier booking contract and its HTTP implementation.
package shipping

import (
	"context"

	"github.com/iudanet/shopkeeper/internal/models"
)

// Delivery is a booked courier delivery
type Delivery struct {
	ID             string `json:"_id"`
	TrackingNumber string `json:"trackingNumber"`
}

// PickupResult is the answer to a pickup request
type PickupResult struct {
	PickupID         string
	AlreadyScheduled bool
}

//go:generate moq -out provider_mock.go . Provider

// Provider books and cancels courier deliveries.
// Every method returns a *CourierError on failure.
type Provider interface {
	// CreateDelivery books a delivery for the order
	CreateDelivery(ctx context.Context, order *models.Order) (*Delivery, error)

	// CancelDelivery cancels a booked delivery; an unknown delivery is not an error
	CancelDelivery(ctx context.Context, deliveryID string) error

	// CreatePickup asks the courier to collect the given deliveries
	CreatePickup(ctx context.Context, deliveryIDs []string) (*PickupResult, error)
}
