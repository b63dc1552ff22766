// Package upstox is the Upstox REST implementation of broker.Broker.
// Regular orders go through the low-latency order host, everything else
// through the main API host.
package upstox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradepool/internal/broker"
	"tradepool/internal/config"
)

const orderTimestampLayout = "2006-01-02 15:04:05"

// Compile-time interface check.
var _ broker.Broker = (*Client)(nil)

type Client struct {
	host       string
	orderHost  string
	token      string
	product    string
	validity   string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstox API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, cfg config.BrokerConfig, token string) *Client {
	host := strings.TrimRight(cfg.BaseURL, "/")
	if host == "" {
		host = "https://api.upstox.com"
	}
	orderHost := strings.TrimRight(cfg.OrderBaseURL, "/")
	if orderHost == "" {
		orderHost = host
	}
	product := cfg.Product
	if product == "" {
		product = "D"
	}
	validity := cfg.Validity
	if validity == "" {
		validity = "DAY"
	}
	return &Client{
		host:       host,
		orderHost:  orderHost,
		token:      token,
		product:    product,
		validity:   validity,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string {
	return "upstox"
}

func (c *Client) doJSON(ctx context.Context, method, fullURL string, query url.Values, payload any) ([]byte, error) {
	if query != nil && len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

type orderIDsResponse struct {
	Data struct {
		OrderIDs []string `json:"order_ids"`
		OrderID  string   `json:"order_id"`
		GTTIDs   []string `json:"gtt_order_ids"`
	} `json:"data"`
}

func (r *orderIDsResponse) ids() []string {
	if len(r.Data.OrderIDs) > 0 {
		return r.Data.OrderIDs
	}
	if len(r.Data.GTTIDs) > 0 {
		return r.Data.GTTIDs
	}
	if r.Data.OrderID != "" {
		return []string{r.Data.OrderID}
	}
	return nil
}

func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) ([]string, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	price := decimal.Zero
	if req.OrderType != "MARKET" {
		price = req.Price
	}
	payload := map[string]any{
		"instrument_token":   req.Ticker,
		"quantity":           req.Quantity,
		"order_type":         req.OrderType,
		"transaction_type":   req.Action,
		"tag":                req.Tag,
		"product":            c.product,
		"validity":           c.validity,
		"price":              price,
		"disclosed_quantity": 0,
		"trigger_price":      0,
		"is_amo":             false,
		"slice":              false,
	}
	raw, err := c.doJSON(ctx, http.MethodPost, c.orderHost+"/v3/order/place", nil, payload)
	if err != nil {
		return nil, err
	}
	var parsed orderIDsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode place response: %w", err)
	}
	return parsed.ids(), nil
}

func (c *Client) PlaceTriggerOrder(ctx context.Context, req broker.TriggerOrderRequest) ([]string, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	payload := map[string]any{
		"type":             "SINGLE",
		"instrument_token": req.Ticker,
		"quantity":         req.Quantity,
		"product":          c.product,
		"transaction_type": req.Action,
		"rules": []map[string]any{
			{
				"strategy":      req.TriggerType,
				"trigger_type":  "IMMEDIATE",
				"trigger_price": req.TriggerPrice,
			},
		},
	}
	raw, err := c.doJSON(ctx, http.MethodPost, c.orderHost+"/v3/order/gtt/place", nil, payload)
	if err != nil {
		return nil, err
	}
	var parsed orderIDsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gtt place response: %w", err)
	}
	return parsed.ids(), nil
}

func (c *Client) ModifyOrder(ctx context.Context, orderID string, quantity, price decimal.Decimal, orderType string) ([]string, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order_id is required")
	}
	if orderType == "MARKET" {
		price = decimal.Zero
	}
	payload := map[string]any{
		"order_id":   orderID,
		"quantity":   quantity,
		"price":      price,
		"order_type": orderType,
	}
	raw, err := c.doJSON(ctx, http.MethodPut, c.orderHost+"/v3/order/modify", nil, payload)
	if err != nil {
		return nil, err
	}
	var parsed orderIDsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode modify response: %w", err)
	}
	return parsed.ids(), nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("order_id is required")
	}
	query := url.Values{}
	query.Set("order_id", orderID)
	_, err := c.doJSON(ctx, http.MethodDelete, c.orderHost+"/v2/order/cancel", query, nil)
	return err
}

func (c *Client) CancelTriggerOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("order_id is required")
	}
	payload := map[string]any{"gtt_order_id": orderID}
	_, err := c.doJSON(ctx, http.MethodDelete, c.orderHost+"/v3/order/gtt/cancel", nil, payload)
	return err
}

type orderDetailResponse struct {
	Data struct {
		OrderID        string  `json:"order_id"`
		Quantity       float64 `json:"quantity"`
		FilledQuantity float64 `json:"filled_quantity"`
		AveragePrice   float64 `json:"average_price"`
		Status         string  `json:"status"`
		OrderTimestamp string  `json:"order_timestamp"`
	} `json:"data"`
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*broker.OrderDetail, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order_id is required")
	}
	query := url.Values{}
	query.Set("order_id", orderID)
	raw, err := c.doJSON(ctx, http.MethodGet, c.host+"/v2/order/details", query, nil)
	if err != nil {
		return nil, err
	}
	var parsed orderDetailResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode order detail: %w", err)
	}
	detail := &broker.OrderDetail{
		OrderID:        parsed.Data.OrderID,
		Quantity:       decimal.NewFromFloat(parsed.Data.Quantity),
		FilledQuantity: decimal.NewFromFloat(parsed.Data.FilledQuantity),
		AveragePrice:   decimal.NewFromFloat(parsed.Data.AveragePrice),
		Status:         parsed.Data.Status,
	}
	if parsed.Data.OrderTimestamp != "" {
		ts, err := time.Parse(orderTimestampLayout, parsed.Data.OrderTimestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order timestamp %q: %w", parsed.Data.OrderTimestamp, err)
		}
		detail.OrderTimestamp = ts
	}
	return detail, nil
}

type ltpResponse struct {
	Data map[string]struct {
		LastPrice float64 `json:"last_price"`
	} `json:"data"`
}

func (c *Client) LastTradedPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if ticker == "" {
		return decimal.Zero, fmt.Errorf("ticker is required")
	}
	query := url.Values{}
	query.Set("instrument_token", ticker)
	raw, err := c.doJSON(ctx, http.MethodGet, c.host+"/v3/market-quote/ltp", query, nil)
	if err != nil {
		return decimal.Zero, err
	}
	var parsed ltpResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode ltp response: %w", err)
	}
	for _, quote := range parsed.Data {
		return decimal.NewFromFloat(quote.LastPrice), nil
	}
	return decimal.Zero, fmt.Errorf("no quote returned for %s", ticker)
}

type fundsResponse struct {
	Data struct {
		Equity struct {
			AvailableMargin float64 `json:"available_margin"`
			UsedMargin      float64 `json:"used_margin"`
		} `json:"equity"`
	} `json:"data"`
}

// Funds returns the account's available and used equity margin.
func (c *Client) Funds(ctx context.Context) (available, used decimal.Decimal, err error) {
	raw, err := c.doJSON(ctx, http.MethodGet, c.host+"/v2/user/get-funds-and-margin", nil, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	var parsed fundsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to decode funds response: %w", err)
	}
	return decimal.NewFromFloat(parsed.Data.Equity.AvailableMargin),
		decimal.NewFromFloat(parsed.Data.Equity.UsedMargin), nil
}
