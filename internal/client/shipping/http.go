package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/iudanet/shopkeeper/internal/models"
)

// Address is the courier pickup address
type Address struct {
	CityCode       string `json:"cityCode,omitempty" mapstructure:"city_code"`
	FirstLine      string `json:"firstLine" mapstructure:"first_line"`
	BuildingNumber string `json:"buildingNumber" mapstructure:"building_number"`
	Floor          string `json:"floor" mapstructure:"floor"`
	Apartment      string `json:"apartment" mapstructure:"apartment"`
}

// Config holds courier API settings
type Config struct {
	PickupAddress  Address       `mapstructure:"pickup_address"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	BusinessName   string        `mapstructure:"business_name"`
	BusinessPhone  string        `mapstructure:"business_phone"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PickupCutoff   int           `mapstructure:"pickup_cutoff_hour"` // после этого часа pickup на завтра
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// Configured reports whether bookings can be made
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// prepaid payment methods never carry cash on delivery
var prepaidMethods = map[string]bool{
	"vodafone": true,
	"instapay": true,
	"prepaid":  true,
}

var nonDigits = regexp.MustCompile(`\D`)

// HTTPProvider talks to the courier REST API (/api/v2).
type HTTPProvider struct {
	httpClient *http.Client
	now        func() time.Time
	cfg        Config
}

// NewHTTPProvider creates a courier client
func NewHTTPProvider(cfg Config) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.PickupCutoff <= 0 {
		cfg.PickupCutoff = 15
	}

	return &HTTPProvider{
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		cfg:        cfg,
	}
}

type deliveryRequest struct {
	BusinessReference string         `json:"businessReference"`
	Notes             string         `json:"notes,omitempty"`
	Receiver          receiver       `json:"receiver"`
	DropOffAddress    dropOffAddress `json:"dropOffAddress"`
	Specs             deliverySpecs  `json:"specs"`
	COD               int64          `json:"cod"`
	Type              int            `json:"type"`
}

type deliverySpecs struct {
	PackageDetails packageDetails `json:"packageDetails"`
}

type packageDetails struct {
	Description string  `json:"description"`
	ItemsCount  int     `json:"itemsCount"`
	Weight      float64 `json:"weight"`
	Value       int64   `json:"value"`
}

type receiver struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

type dropOffAddress struct {
	City      string `json:"city"`
	District  string `json:"district,omitempty"`
	FirstLine string `json:"firstLine"`
}

type pickupRequest struct {
	ContactPerson contactPerson `json:"contactPerson"`
	PickupAddress Address       `json:"pickupAddress"`
	ScheduledDate string        `json:"scheduledDate"`
	ScheduledSlot string        `json:"scheduledSlot"`
	DeliveryIDs   []string      `json:"deliveryIds"`
}

type contactPerson struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type apiError struct {
	Message string `json:"message"`
}

// CreateDelivery books a delivery: POST /api/v2/deliveries
func (p *HTTPProvider) CreateDelivery(ctx context.Context, order *models.Order) (*Delivery, error) {
	const op = "create_delivery"

	var d Delivery
	if err := p.do(ctx, op, http.MethodPost, "/api/v2/deliveries", buildDeliveryRequest(order), &d); err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, &CourierError{Op: op, Err: fmt.Errorf("response without delivery id")}
	}

	return &d, nil
}

// CancelDelivery cancels a delivery: DELETE /api/v2/deliveries/{id}. 404 counts as success.
func (p *HTTPProvider) CancelDelivery(ctx context.Context, deliveryID string) error {
	const op = "cancel_delivery"

	if deliveryID == "" {
		return &CourierError{Op: op, Err: fmt.Errorf("empty delivery id")}
	}

	err := p.do(ctx, op, http.MethodDelete, "/api/v2/deliveries/"+url.PathEscape(deliveryID), nil, nil)
	var ce *CourierError
	if errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// CreatePickup schedules collection: POST /api/v2/pickups.
// "already exists" answers count as success.
func (p *HTTPProvider) CreatePickup(ctx context.Context, deliveryIDs []string) (*PickupResult, error) {
	const op = "create_pickup"

	phone := nonDigits.ReplaceAllString(p.cfg.BusinessPhone, "")
	if phone == "" {
		return nil, &CourierError{Op: op, Err: fmt.Errorf("%w: business phone is required for pickups", ErrNotConfigured)}
	}

	req := pickupRequest{
		ScheduledDate: p.pickupDate(),
		ScheduledSlot: "10:00 - 16:00",
		ContactPerson: contactPerson{Name: p.cfg.BusinessName, Phone: phone},
		PickupAddress: p.cfg.PickupAddress,
		DeliveryIDs:   deliveryIDs,
	}

	var resp struct {
		ID string `json:"_id"`
	}
	err := p.do(ctx, op, http.MethodPost, "/api/v2/pickups", req, &resp)
	var ce *CourierError
	if errors.As(err, &ce) && strings.Contains(strings.ToLower(ce.Message), "already exists") {
		return &PickupResult{AlreadyScheduled: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return &PickupResult{PickupID: resp.ID}, nil
}

// pickupDate returns today, or tomorrow after the cutoff hour
func (p *HTTPProvider) pickupDate() string {
	now := p.now()
	if now.Hour() >= p.cfg.PickupCutoff {
		now = now.AddDate(0, 0, 1)
	}
	return now.Format(time.DateOnly)
}

func buildDeliveryRequest(order *models.Order) deliveryRequest {
	cust := order.Customer

	name := strings.TrimSpace(cust.Name)
	first, last, _ := strings.Cut(name, " ")
	last = strings.TrimSpace(last)
	if last == "" {
		last = "."
	}

	province := cust.Province
	if province == "" {
		province = cust.City
	}

	lineParts := make([]string, 0, 2)
	for _, part := range []string{cust.City, cust.Address} {
		if len(strings.TrimSpace(part)) > 1 {
			lineParts = append(lineParts, strings.TrimSpace(part))
		}
	}
	firstLine := strings.Join(lineParts, " - ")
	if r := []rune(firstLine); len(r) > 160 {
		firstLine = string(r[:160])
	}

	total := order.Total.Round(0).IntPart()
	cod := total
	if prepaidMethods[strings.ToLower(order.PaymentMethod)] {
		cod = 0
	}

	phone := nonDigits.ReplaceAllString(cust.Phone, "")
	phone = strings.TrimPrefix(phone, "2")

	return deliveryRequest{
		Type:              10,
		BusinessReference: order.ID,
		COD:               cod,
		Notes:             order.Notes,
		Specs: deliverySpecs{
			PackageDetails: packageDetails{
				Description: "Order #" + order.ID,
				ItemsCount:  len(order.Items),
				Weight:      order.TotalWeight,
				Value:       total,
			},
		},
		DropOffAddress: dropOffAddress{
			City:      province,
			District:  cust.City,
			FirstLine: firstLine,
		},
		Receiver: receiver{
			FirstName: first,
			LastName:  last,
			Phone:     phone,
			Email:     cust.Email,
		},
	}
}

func (p *HTTPProvider) do(ctx context.Context, op, method, path string, body, result any) error {
	if !p.cfg.Configured() {
		return &CourierError{Op: op, Err: ErrNotConfigured}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &CourierError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(p.cfg.BaseURL, "/")+path, bodyReader)
	if err != nil {
		return &CourierError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", p.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &CourierError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CourierError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		return &CourierError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    apiErr.Message,
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &CourierError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}
