package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"
)

// QuoteRequest asks the logistics provider for carrier offers.
type QuoteRequest struct {
	PickupPincode string  `json:"pickup_pincode"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropPincode   string  `json:"drop_pincode"`
	DropLat       float64 `json:"drop_lat"`
	DropLng       float64 `json:"drop_lng"`
	Amount        float64 `json:"amount"`
	WeightGrams   int     `json:"weight"`
}

// OrderRequest places a delivery order with a chosen carrier.
type OrderRequest struct {
	ClientOrderID string  `json:"client_order_id"`
	CarrierID     string  `json:"lsp_id"`
	PickupName    string  `json:"pickup_name"`
	PickupPhone   string  `json:"pickup_phone"`
	PickupAddress string  `json:"pickup_address"`
	PickupPincode string  `json:"pickup_pincode"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropName      string  `json:"drop_name"`
	DropPhone     string  `json:"drop_phone"`
	DropAddress   string  `json:"drop_address"`
	DropPincode   string  `json:"drop_pincode"`
	DropLat       float64 `json:"drop_lat"`
	DropLng       float64 `json:"drop_lng"`
	Amount        float64 `json:"amount"`
}

// PlacedOrder is the provider's acknowledgement of a created order.
type PlacedOrder struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// LogisticsClient talks to the delivery provider's quote/order API.
type LogisticsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewLogisticsClient creates the logistics provider client.
func NewLogisticsClient(cfg config.LogisticsConfig, log *logger.Logger) *LogisticsClient {
	return &LogisticsClient{
		apiKey:  cfg.GetLogisticsAPIKey(),
		baseURL: cfg.GetLogisticsBaseURL(),
		client:  &http.Client{Timeout: 20 * time.Second},
		log:     log,
	}
}

type quoteResponse struct {
	Quotes  []Quote `json:"quotes"`
	Message string  `json:"message"`
}

// GetQuotes fetches carrier offers for a pickup/drop pair. An empty quote
// list is not an error here; the orchestrator surfaces the provider message.
func (l *LogisticsClient) GetQuotes(ctx context.Context, req QuoteRequest) ([]Quote, string, error) {
	var resp quoteResponse
	if err := l.post(ctx, "get_quotes", "/quotes", req, &resp); err != nil {
		return nil, "", err
	}
	return resp.Quotes, resp.Message, nil
}

// CreateOrder places the order with the selected carrier.
func (l *LogisticsClient) CreateOrder(ctx context.Context, req OrderRequest) (*PlacedOrder, error) {
	var placed PlacedOrder
	if err := l.post(ctx, "create_order", "/orders", req, &placed); err != nil {
		return nil, err
	}
	if placed.OrderID == "" {
		return nil, apperr.Unavailable("logistics provider reply missing order id")
	}
	return &placed, nil
}

func (l *LogisticsClient) post(ctx context.Context, operation, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := l.client.Do(req)
	l.log.ExternalCall("logistics", operation, time.Since(start).Milliseconds(), err)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "logistics request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Unavailable(fmt.Sprintf("logistics provider returned %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
