// Package notify delivers order notifications to an HTTP webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/shopkeeper/internal/models"
)

// EventOrderCreated is the event name sent for new orders
const EventOrderCreated = "order.created"

// Config holds webhook settings
type Config struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Message is the webhook body
type Message struct {
	Order   *models.Order `json:"order"`
	Event   string        `json:"event"`
	Summary string        `json:"summary"`
	SentAt  int64         `json:"sentAt"`
}

// Webhook posts a JSON message for every created order.
type Webhook struct {
	httpClient *http.Client
	cfg        Config
}

// NewWebhook creates a webhook notifier. An empty URL yields nil.
func NewWebhook(cfg Config) *Webhook {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// NotifyOrderCreated sends the order to the webhook
func (w *Webhook) NotifyOrderCreated(ctx context.Context, order *models.Order) error {
	msg := Message{
		Event:   EventOrderCreated,
		Order:   order,
		Summary: Summary(order),
		SentAt:  time.Now().UnixMilli(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Summary is a one-line human readable description of the order
func Summary(order *models.Order) string {
	return fmt.Sprintf("New order %s from %s (%s): %d items, total %s",
		order.ID, order.Customer.Name, order.Customer.City, order.ItemCount(), order.Total.StringFixed(2))
}
