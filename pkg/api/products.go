package api

// SaveResponse is returned by POST /api/products.
type SaveResponse struct {
	ID          string `json:"id"`
	LastUpdated int64  `json:"lastUpdated"` // timestamp of the stored version
	Applied     bool   `json:"applied"`     // false if the stored version was newer
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Products int    `json:"products"`
}
