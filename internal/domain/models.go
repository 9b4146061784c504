// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side represents the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SideFromString parses a trade side, accepting any casing
func SideFromString(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	}
	return "", fmt.Errorf("invalid trade side: %q (must be buy or sell)", s)
}

// AccountType classifies an account for rule applicability
type AccountType string

const (
	AccountTaxable    AccountType = "taxable"
	AccountRetirement AccountType = "retirement"
)

// ClientType classifies the client for rule applicability
type ClientType string

const (
	ClientIndividual    ClientType = "individual"
	ClientInstitutional ClientType = "institutional"
)

// TransactionStatus is the single source of truth for a transaction's
// lifecycle state. pending is the only non-terminal state.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusExecuted  TransactionStatus = "executed"
	StatusRejected  TransactionStatus = "rejected"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// StatusFromString parses a transaction status
func StatusFromString(s string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusExecuted:
		return StatusExecuted, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("invalid transaction status: %q", s)
}

// IsTerminal reports whether no further transitions are allowed
func (s TransactionStatus) IsTerminal() bool {
	return s != StatusPending
}

// CanTransitionTo reports whether the transition s -> to is allowed.
// The only legal transitions are pending -> {executed, rejected, failed,
// cancelled}. Transitions are monotonic: once a transaction leaves pending
// it never returns.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	if s != StatusPending {
		return false
	}
	switch to {
	case StatusExecuted, StatusRejected, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TradeIntent is a proposed trade created by the advisory layer before any
// broker call. Immutable once compliance review begins.
type TradeIntent struct {
	CreatedAt    time.Time   `json:"created_at"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	PortfolioID  string      `json:"portfolio_id"`
	UserID       string      `json:"user_id"`
	AccountType  AccountType `json:"account_type"`
	ClientType   ClientType  `json:"client_type"`
	AdvisoryText string      `json:"advisory_text"`
	// Risk levels use the conservative/moderate/aggressive scale.
	// Empty values are treated as moderate.
	RecommendationRisk  string  `json:"recommendation_risk,omitempty"`
	ClientRiskTolerance string  `json:"client_risk_tolerance,omitempty"`
	Quantity            float64 `json:"quantity"`
	EstimatedPrice      float64 `json:"estimated_price"`
}

// Value returns the estimated notional value of the trade
func (t TradeIntent) Value() float64 {
	return t.Quantity * t.EstimatedPrice
}

// Validate checks the intent before any rule runs.
// A malformed intent is rejected with a ValidationError (never evaluated).
func (t TradeIntent) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return NewValidationError("symbol", "must not be empty")
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return NewValidationError("side", fmt.Sprintf("invalid side %q", t.Side))
	}
	if t.Quantity <= 0 {
		return NewValidationError("quantity", fmt.Sprintf("must be positive, got %g", t.Quantity))
	}
	if t.EstimatedPrice <= 0 {
		return NewValidationError("estimated_price", fmt.Sprintf("must be positive, got %g", t.EstimatedPrice))
	}
	if strings.TrimSpace(t.PortfolioID) == "" {
		return NewValidationError("portfolio_id", "must not be empty")
	}
	return nil
}

// Transaction is the durable trade record. Created at proposal time with
// status pending; updated by compliance decisions and reconciliation; never
// deleted.
type Transaction struct {
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ID             string            `json:"id"`
	PortfolioID    string            `json:"portfolio_id"`
	UserID         string            `json:"user_id"`
	Symbol         string            `json:"symbol"`
	Side           Side              `json:"side"`
	Status         TransactionStatus `json:"status"`
	BrokerOrderRef string            `json:"broker_order_ref,omitempty"`
	Notes          string            `json:"notes"`
	Quantity       float64           `json:"quantity"`
	Price          float64           `json:"price"`
}

// Holding is a portfolio position. Mutated only by reconciliation or
// explicit portfolio corrections.
type Holding struct {
	LastUpdated  time.Time `json:"last_updated"`
	PortfolioID  string    `json:"portfolio_id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	AverageCost  float64   `json:"average_cost"`
	CurrentPrice float64   `json:"current_price"`
}

// MarketValue returns the holding's current market value
func (h Holding) MarketValue() float64 {
	return h.Quantity * h.CurrentPrice
}

// CostBasis returns the holding's total cost basis
func (h Holding) CostBasis() float64 {
	return h.Quantity * h.AverageCost
}

// UnrealizedPL returns the unrealized profit (positive) or loss (negative)
func (h Holding) UnrealizedPL() float64 {
	return h.MarketValue() - h.CostBasis()
}
