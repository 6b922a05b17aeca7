package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/pkg/api"
)

// DefaultTimeout bounds every call to the catalog server.
const DefaultTimeout = 8 * time.Second

// Option настраивает Client
type Option func(*Client)

// WithTimeout задает таймаут HTTP клиента
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithToken задает bearer токен для запросов на запись
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient подменяет HTTP клиент (тесты, прокси)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client представляет HTTP клиент удаленного каталога
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	mu         sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken заменяет bearer токен
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ListProducts получает весь каталог. Ответ, не являющийся JSON массивом, считается ошибкой.
func (c *Client) ListProducts(ctx context.Context) ([]models.Record, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/api/products", nil, &raw); err != nil {
		return nil, fmt.Errorf("list products request failed: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("list products: %w: expected JSON array", ErrMalformedResponse)
	}

	records := []models.Record{}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("list products: %w: %v", ErrMalformedResponse, err)
	}

	return records, nil
}

// SaveProduct отправляет одну запись каталога
func (c *Client) SaveProduct(ctx context.Context, record models.Record) (*api.SaveResponse, error) {
	var resp api.SaveResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/products", record, &resp); err != nil {
		return nil, fmt.Errorf("save product %q failed: %w", record.ID, err)
	}
	return &resp, nil
}

// DeleteProduct удаляет запись каталога. 404 считается успехом.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	err := c.doRequest(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete product %q failed: %w", id, err)
	}
	return nil
}

// Login выполняет аутентификацию администратора
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		} else {
			statusErr.Message = string(respBody)
		}
		return statusErr
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	return nil
}
