// Package cli implements the shopkeeper operator commands on top of the
// synchronization engine and the order pipeline.
package cli

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/shopkeeper/internal/client/auth"
	"github.com/iudanet/shopkeeper/internal/client/iocli"
	"github.com/iudanet/shopkeeper/internal/client/orders"
	"github.com/iudanet/shopkeeper/internal/client/storage"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/pkg/api"
)

// HealthChecker is the part of the catalog API client the status command needs
type HealthChecker interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// App is everything a command can work with. It is assembled by an Opener
// for the duration of one command.
type App struct {
	Engine     *shopsync.Engine
	Orders     *orders.Service
	Dispatcher *orders.CourierDispatcher

	// Subscriptions is nil when the backup store is not configured
	Subscriptions *shopsync.SubscriptionManager

	// Auth and Catalog are nil when the remote catalog is disabled
	Auth    *auth.Service
	Catalog HealthChecker

	Outbox   storage.OutboxStorage
	Meta     storage.MetadataStorage
	Registry *prometheus.Registry
	IO       iocli.IO
	Logger   *slog.Logger
}

// Opener builds the App from the root options. The returned func releases
// stores and connections and is always non-nil when err is nil.
type Opener func(ctx context.Context, opts *RootOptions) (*App, func(), error)
