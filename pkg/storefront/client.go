package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

const (
	sortOldestFirst   = "created_at-asc"
	responseBodyLimit = 1 << 20
)

var (
	errBaseURLRequired     = errors.New("storefront base url is required")
	errMerchantIDRequired  = errors.New("storefront merchant id is required")
	errTokenSourceRequired = errors.New("storefront token source is required")
)

// TokenSource supplies the bearer token for outbound calls. The refresh flow
// itself lives outside this service; implementations only cache and hand out
// the current token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client wraps the remote commerce platform's order APIs with centralized
// auth, retry, logging, and typed errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	merchantID string
	tokens     TokenSource
	logger     *logger.Logger
	retryBase  time.Duration
	retryMax   uint64
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the storefront client from configuration.
func NewClient(cfg config.StorefrontConfig, tokens TokenSource, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	if tokens == nil {
		return nil, errTokenSourceRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 300 * time.Millisecond
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		merchantID: merchantID,
		tokens:     tokens,
		logger:     logg,
		retryBase:  retryBase,
		retryMax:   cfg.RetryMax,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// MerchantID reports the tenant this client is bound to.
func (c *Client) MerchantID() string {
	if c == nil {
		return ""
	}
	return c.merchantID
}

// ListOrders fetches one oldest-first page of orders in the given status.
func (c *Client) ListOrders(ctx context.Context, status string, perPage int) ([]Order, error) {
	query := url.Values{}
	query.Set("status", status)
	query.Set("per_page", fmt.Sprint(perPage))
	query.Set("sort_by", sortOldestFirst)

	var resp struct {
		Data []Order `json:"data"`
	}
	err := c.withRetry(ctx, "list_orders", func(ctx context.Context) error {
		return c.doJSON(ctx, "list_orders", http.MethodGet, "/orders", query, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetOrder fetches the detail payload for one order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Data Order `json:"data"`
	}
	path := "/orders/" + url.PathEscape(orderID)
	err := c.withRetry(ctx, "get_order", func(ctx context.Context) error {
		return c.doJSON(ctx, "get_order", http.MethodGet, path, nil, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListOrderItems fetches the line items for one order.
func (c *Client) ListOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	query := url.Values{}
	query.Set("order_id", orderID)

	var resp struct {
		Data []OrderItem `json:"data"`
	}
	err := c.withRetry(ctx, "list_order_items", func(ctx context.Context) error {
		return c.doJSON(ctx, "list_order_items", http.MethodGet, "/orders/items", query, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListStatuses fetches the platform's order status taxonomy.
func (c *Client) ListStatuses(ctx context.Context) ([]OrderStatus, error) {
	var resp struct {
		Data []OrderStatus `json:"data"`
	}
	err := c.withRetry(ctx, "list_statuses", func(ctx context.Context) error {
		return c.doJSON(ctx, "list_statuses", http.MethodGet, "/orders/statuses", nil, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateOrderStatus transitions one remote order. This call is deliberately
// not retried: the engine compensates on failure instead of re-posting a
// transition it cannot confirm.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, statusID int64) error {
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	body := map[string]any{"status_id": statusID}
	return c.doJSON(ctx, "update_order_status", http.MethodPost, path, nil, body, nil)
}

func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.retryMax, retry.NewExponential(c.retryBase))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			c.log(ctx, "retry", op, map[string]any{"attempt": attempt, "error": err.Error()})
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("resolve token: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log(ctx, "error", op, map[string]any{"status": resp.StatusCode})
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: truncateBody(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max])
	}
	return string(data)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	c.logger.Warn(c.logger.WithFields(ctx, logFields), "storefront "+op+" "+phase)
}
