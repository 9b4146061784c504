package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Side
		wantErr  bool
	}{
		{"buy", SideBuy, false},
		{"BUY", SideBuy, false},
		{" sell ", SideSell, false},
		{"Sell", SideSell, false},
		{"hold", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			side, err := SideFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, side)
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	terminal := []TransactionStatus{StatusExecuted, StatusRejected, StatusFailed, StatusCancelled}

	for _, to := range terminal {
		assert.True(t, StatusPending.CanTransitionTo(to), "pending -> %s should be allowed", to)
	}

	// Terminal states never transition, not even to themselves.
	for _, from := range terminal {
		assert.True(t, from.IsTerminal())
		for _, to := range append(terminal, StatusPending) {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s should be blocked", from, to)
		}
	}

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
}

func TestStatusFromString(t *testing.T) {
	status, err := StatusFromString("EXECUTED")
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, status)

	_, err = StatusFromString("filled")
	assert.Error(t, err)
}

func TestTradeIntentValidate(t *testing.T) {
	valid := TradeIntent{
		Symbol:         "AAPL",
		Side:           SideBuy,
		Quantity:       10,
		EstimatedPrice: 185.50,
		PortfolioID:    "port-1",
		UserID:         "user-1",
		AccountType:    AccountTaxable,
		ClientType:     ClientIndividual,
	}
	require.NoError(t, valid.Validate())
	assert.InDelta(t, 1855.0, valid.Value(), 1e-9)

	tests := []struct {
		name   string
		mutate func(*TradeIntent)
		field  string
	}{
		{"empty symbol", func(i *TradeIntent) { i.Symbol = "  " }, "symbol"},
		{"bad side", func(i *TradeIntent) { i.Side = "short" }, "side"},
		{"zero quantity", func(i *TradeIntent) { i.Quantity = 0 }, "quantity"},
		{"negative quantity", func(i *TradeIntent) { i.Quantity = -5 }, "quantity"},
		{"zero price", func(i *TradeIntent) { i.EstimatedPrice = 0 }, "estimated_price"},
		{"empty portfolio", func(i *TradeIntent) { i.PortfolioID = "" }, "portfolio_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := valid
			tt.mutate(&intent)
			err := intent.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHoldingMath(t *testing.T) {
	h := Holding{
		Symbol:       "INTC",
		Quantity:     22.5,
		AverageCost:  580.0,
		CurrentPrice: 535.82,
	}

	assert.InDelta(t, 12055.95, h.MarketValue(), 1e-6)
	assert.InDelta(t, 13050.0, h.CostBasis(), 1e-6)
	assert.InDelta(t, -994.05, h.UnrealizedPL(), 1e-6)
}

func TestErrorClassification(t *testing.T) {
	transient := NewBrokerTransientError("submit_order", "503", errors.New("service unavailable"))
	permanent := NewBrokerPermanentError("submit_order", "422", errors.New("invalid order"))

	assert.True(t, IsBrokerTransient(transient))
	assert.False(t, IsBrokerTransient(permanent))
	assert.False(t, IsBrokerTransient(errors.New("plain")))

	conflict := NewConflictError("txn-1", StatusExecuted, StatusCancelled)
	assert.True(t, IsConflict(conflict))
	assert.Contains(t, conflict.Error(), "terminal")
	assert.False(t, IsConflict(permanent))
}
