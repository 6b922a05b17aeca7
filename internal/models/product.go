package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultItemWeight is used when a product has no weight or cannot be found (kg).
const DefaultItemWeight = 0.5

// Variant is a size/color option of a product with its own stock.
type Variant struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Size     string           `json:"size,omitempty"`
	Color    string           `json:"color,omitempty"`
	Quantity int              `json:"quantity" validate:"gte=0"`
}

// Product is a catalog record.
// If Variants is non-empty Quantity should equal their sum; the order pipeline keeps
// that up to date, storage does not enforce it.
type Product struct {
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	Variants    []Variant       `json:"variants,omitempty" validate:"dive"`
	Weight      float64         `json:"weight,omitempty"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	SortOrder   int             `json:"sortOrder,omitempty"`
	LastUpdated int64           `json:"lastUpdated"`
	Archived    bool            `json:"archived,omitempty"`
}

// ItemWeight returns the shipping weight of one unit.
func (p *Product) ItemWeight() float64 {
	if p == nil || p.Weight <= 0 {
		return DefaultItemWeight
	}
	return p.Weight
}

// FindVariant returns the variant whose size and color both equal the requested
// ones. An attribute set on only one side never matches.
func (p *Product) FindVariant(size, color string) *Variant {
	if size == "" && color == "" {
		return nil
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Size == size && v.Color == color {
			return v
		}
	}
	return nil
}

// Deduct removes qty units from stock: from the matching variant if there is
// one, and always from the aggregate quantity. Both are floored at 0.
// Returns true if anything changed.
func (p *Product) Deduct(qty int, size, color string) bool {
	changed := false

	if v := p.FindVariant(size, color); v != nil {
		v.Quantity = max(0, v.Quantity-qty)
		changed = true
	}

	next := max(0, p.Quantity-qty)
	if next != p.Quantity {
		changed = true
	}
	p.Quantity = next

	return changed
}

// SortProducts orders products for display by SortOrder, keeping ties stable.
func SortProducts(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].SortOrder < products[j].SortOrder
	})
}
