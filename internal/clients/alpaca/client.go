// Package alpaca provides a client for the Alpaca trading API
// (paper or live, selected by base URL). It implements the broker
// surface the ledger and reconciliation modules depend on.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

const defaultBaseURL = "https://paper-api.alpaca.markets"

// Client is the Alpaca REST client.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	account    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Config holds the connection settings for an Alpaca account. Account
// names the portfolio this credential set serves; empty accepts any
// account reference.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Account   string
	Timeout   time.Duration
}

// NewClient creates a new Alpaca client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		account:    cfg.Account,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "alpaca").Logger(),
	}
}

// orderRequest is the POST /v2/orders payload. All orders go out as
// day market orders; limit handling lives broker-side if ever needed.
type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// orderResponse is the order entity Alpaca returns from both the
// submission and status endpoints.
type orderResponse struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Status         string `json:"status"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

type positionResponse struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
}

// SubmitOrder places a day market order for the transaction. The
// transaction id doubles as the client order id so a resubmission of
// the same transaction is rejected broker-side as a duplicate.
func (c *Client) SubmitOrder(ctx context.Context, txn *domain.Transaction) (*domain.BrokerOrderResult, error) {
	payload := orderRequest{
		Symbol:        txn.Symbol,
		Qty:           strconv.FormatFloat(txn.Quantity, 'f', -1, 64),
		Side:          string(txn.Side),
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: txn.ID,
	}

	var order orderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/orders", payload, &order, "submit_order"); err != nil {
		return nil, err
	}

	c.log.Info().
		Str("transaction_id", txn.ID).
		Str("order_ref", order.ID).
		Str("symbol", order.Symbol).
		Str("status", order.Status).
		Msg("Order submitted")

	return &domain.BrokerOrderResult{
		OrderRef: order.ID,
		Status:   domain.BrokerOrderStatus(order.Status),
	}, nil
}

// GetOrderStatus fetches the current state of a previously submitted order.
func (c *Client) GetOrderStatus(ctx context.Context, ref string) (*domain.BrokerOrder, error) {
	var order orderResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v2/orders/"+ref, nil, &order, "get_order_status"); err != nil {
		return nil, err
	}

	return &domain.BrokerOrder{
		OrderRef:    order.ID,
		Symbol:      order.Symbol,
		Side:        domain.Side(order.Side),
		Status:      domain.BrokerOrderStatus(order.Status),
		FilledQty:   parseFloat(order.FilledQty),
		FilledPrice: parseFloat(order.FilledAvgPrice),
	}, nil
}

// GetPositions fetches all open positions for the given account. The
// API keys grant exactly one account, so a request for any other
// account is permanently unanswerable with this credential set.
func (c *Client) GetPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	if c.account != "" && account != c.account {
		return nil, domain.NewBrokerPermanentError("get_positions", "account_mismatch",
			fmt.Errorf("no credentials for account %s", account))
	}

	var raw []positionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v2/positions", nil, &raw, "get_positions"); err != nil {
		return nil, err
	}

	positions := make([]domain.BrokerPosition, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, domain.BrokerPosition{
			Symbol:       p.Symbol,
			Quantity:     parseFloat(p.Qty),
			AverageCost:  parseFloat(p.AvgEntryPrice),
			CurrentPrice: parseFloat(p.CurrentPrice),
		})
	}
	return positions, nil
}

// doJSON performs one authenticated request and decodes the JSON
// response into out. Network failures, 5xx and 429 become transient
// broker errors; any other non-2xx status is permanent.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, op string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewBrokerTransientError(op, "network", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("alpaca returned status %d: %s", resp.StatusCode, string(bodyBytes))
		code := strconv.Itoa(resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return domain.NewBrokerTransientError(op, code, apiErr)
		}
		return domain.NewBrokerPermanentError(op, code, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// parseFloat handles Alpaca's habit of sending numbers as strings.
// Empty or null fields become zero, which matches "not filled yet".
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
