package orders

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/shopkeeper/internal/models"
)

func decodeOrder(rec models.Record) (*models.Order, error) {
	var o models.Order
	if err := rec.Decode(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func findOrder(records []models.Record, id string) (*models.Order, error) {
	i := models.IndexOf(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return decodeOrder(records[i])
}

// productIndex decodes the catalog; records that are not products are skipped
func productIndex(records []models.Record) map[string]*models.Product {
	out := make(map[string]*models.Product, len(records))
	for _, rec := range records {
		var p models.Product
		if err := rec.Decode(&p); err != nil {
			continue
		}
		out[rec.ID] = &p
	}
	return out
}

// sessionOf returns the storefront session id of an abandoned cart record
func sessionOf(rec models.Record) string {
	var cart struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Payload, &cart); err != nil {
		return ""
	}
	return cart.SessionID
}
