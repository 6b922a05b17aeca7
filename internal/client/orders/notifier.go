package orders

import (
	"context"

	"github.com/iudanet/shopkeeper/internal/models"
)

//go:generate moq -out notifier_mock.go . Notifier

// Notifier tells someone outside the shop that an order was placed.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order) error
}
