package models

import (
	"fmt"

	"github.com/iudanet/shopkeeper/internal/bus"
)

// Authority decides which store wins when Local and a shared store disagree.
type Authority int

const (
	// BackupAuthoritative collections follow the realtime backup store.
	BackupAuthoritative Authority = iota
	// CatalogAuthoritative collections follow the remote catalog store.
	CatalogAuthoritative
)

func (a Authority) String() string {
	if a == CatalogAuthoritative {
		return "catalog"
	}
	return "backup"
}

// Collection names
const (
	CollectionProducts       = "products"
	CollectionOrders         = "orders"
	CollectionAbandonedCarts = "abandoned_carts"
	CollectionSiteSettings   = "site_settings"
	CollectionCoupons        = "coupons"
	CollectionStaff          = "staff"
	CollectionShippingRates  = "shipping_rates"
	CollectionPendingReviews = "pending_reviews"
	CollectionCustomers      = "customers"
	CollectionCart           = "cart"
)

// Collection describes one named slot of records.
type Collection struct {
	Name      string
	Topic     bus.Topic
	Authority Authority
	Singleton bool // Singleton slot holds one object instead of an array
	LocalOnly bool // LocalOnly slot never leaves the device
}

// IsCatalog reports whether the remote catalog store is authoritative.
func (c Collection) IsCatalog() bool {
	return c.Authority == CatalogAuthoritative
}

var registry = []Collection{
	{Name: CollectionProducts, Authority: CatalogAuthoritative, Topic: bus.CatalogChanged},
	{Name: CollectionOrders, Authority: BackupAuthoritative, Topic: bus.OrdersChanged},
	{Name: CollectionAbandonedCarts, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionSiteSettings, Authority: BackupAuthoritative, Topic: bus.SettingsChanged, Singleton: true},
	{Name: CollectionCoupons, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionStaff, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionShippingRates, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionPendingReviews, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionCustomers, Authority: BackupAuthoritative, Topic: bus.CollectionChanged},
	{Name: CollectionCart, Authority: BackupAuthoritative, Topic: bus.CollectionChanged, LocalOnly: true},
}

// Lookup returns the registered collection with the given name.
func Lookup(name string) (Collection, error) {
	for _, c := range registry {
		if c.Name == name {
			return c, nil
		}
	}
	return Collection{}, fmt.Errorf("unknown collection %q", name)
}

// Collections returns every registered collection.
func Collections() []Collection {
	out := make([]Collection, len(registry))
	copy(out, registry)
	return out
}

// SharedCollections returns the collections replicated to the backup store.
func SharedCollections() []Collection {
	out := make([]Collection, 0, len(registry))
	for _, c := range registry {
		if !c.LocalOnly {
			out = append(out, c)
		}
	}
	return out
}
