// Package printful is a small client for the print-on-demand vendor's order API.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"frunk-store/internal/catalog"
	"frunk-store/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.printful.com"

// Config holds vendor credentials.
type Config struct {
	APIKey     string
	StoreID    string
	BaseURL    string
	HTTPClient *http.Client
}

// Client calls the vendor REST API.
type Client struct {
	apiKey  string
	storeID string
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New returns a Client. It does not validate the key; an empty key makes
// Configured report false.
func New(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiKey: cfg.APIKey, storeID: cfg.StoreID, baseURL: base, http: hc, logger: logger}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Recipient is the ship-to block of an order.
type Recipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Email       string `json:"email,omitempty"`
}

// RecipientFrom maps a stored shipping address to the vendor's shape.
func RecipientFrom(addr domain.ShippingAddress, email string) Recipient {
	return Recipient{
		Name:        addr.Name,
		Address1:    addr.Address1,
		Address2:    addr.Address2,
		City:        addr.City,
		StateCode:   addr.State,
		CountryCode: addr.Country,
		Zip:         addr.Zip,
		Email:       email,
	}
}

// Item is one line of a vendor order.
type Item struct {
	SyncVariantID int64 `json:"sync_variant_id"`
	Quantity      int   `json:"quantity"`
}

// Costs carries order amounts in minor units for reconciliation.
type Costs struct {
	Subtotal int64
	Shipping int64
	Total    int64
}

// OrderRequest is the input of CreateOrder.
type OrderRequest struct {
	ExternalID string
	Recipient  Recipient
	Items      []Item
	Costs      Costs
}

type retailCosts struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

type createOrderBody struct {
	ExternalID  string      `json:"external_id,omitempty"`
	Recipient   Recipient   `json:"recipient"`
	Items       []Item      `json:"items"`
	RetailCosts retailCosts `json:"retail_costs"`
}

type orderEnvelope struct {
	Code   int `json:"code"`
	Result struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"result"`
	Error *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the vendor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("printful: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return domain.ErrUpstream }

// CreateOrder creates a draft order and returns the vendor order id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("printful api key: %w", domain.ErrNotConfigured)
	}
	if len(req.Items) == 0 {
		return "", fmt.Errorf("%w: order has no items", domain.ErrInvalid)
	}
	body := createOrderBody{
		ExternalID: req.ExternalID,
		Recipient:  req.Recipient,
		Items:      req.Items,
		RetailCosts: retailCosts{
			Subtotal: catalog.Amount(req.Costs.Subtotal).StringFixed(2),
			Shipping: catalog.Amount(req.Costs.Shipping).StringFixed(2),
			Total:    catalog.Amount(req.Costs.Total).StringFixed(2),
		},
	}
	var env orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/orders", body, &env); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if env.Result.ID == 0 {
		return "", fmt.Errorf("create order: %w: response carried no order id", domain.ErrUpstream)
	}
	id := strconv.FormatInt(env.Result.ID, 10)
	c.logger.Printf("printful: order created id=%s external_id=%s", id, req.ExternalID)
	return id, nil
}

// ConfirmOrder submits a draft order for fulfillment.
func (c *Client) ConfirmOrder(ctx context.Context, vendorOrderID string) error {
	if !c.Configured() {
		return fmt.Errorf("printful api key: %w", domain.ErrNotConfigured)
	}
	var env orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/orders/"+vendorOrderID+"/confirm", nil, &env); err != nil {
		return fmt.Errorf("confirm order %s: %w", vendorOrderID, err)
	}
	c.logger.Printf("printful: order confirmed id=%s status=%s", vendorOrderID, env.Result.Status)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-Id", c.storeID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var env orderEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	var legacy struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.Result != "" {
		return legacy.Result
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "empty response"
	}
	return msg
}

// IsAPIError reports whether err carries a vendor API error.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
