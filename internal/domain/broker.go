package domain

import "context"

// BrokerOrderStatus is the broker's view of an order's lifecycle.
type BrokerOrderStatus string

const (
	BrokerOrderNew             BrokerOrderStatus = "new"
	BrokerOrderAccepted        BrokerOrderStatus = "accepted"
	BrokerOrderPartiallyFilled BrokerOrderStatus = "partially_filled"
	BrokerOrderFilled          BrokerOrderStatus = "filled"
	BrokerOrderCancelled       BrokerOrderStatus = "canceled"
	BrokerOrderExpired         BrokerOrderStatus = "expired"
	BrokerOrderRejected        BrokerOrderStatus = "rejected"
)

// BrokerOrderResult is what a successful order submission returns.
type BrokerOrderResult struct {
	OrderRef string
	Status   BrokerOrderStatus
}

// BrokerOrder is a broker-side order snapshot used during reconciliation.
type BrokerOrder struct {
	OrderRef    string
	Symbol      string
	Side        Side
	Status      BrokerOrderStatus
	FilledQty   float64
	FilledPrice float64
}

// BrokerPosition is a broker-side holding snapshot.
type BrokerPosition struct {
	Symbol       string
	Quantity     float64
	AverageCost  float64
	CurrentPrice float64
}

// BrokerClient abstracts the brokerage API. All calls take a context so
// callers can bound them. Positions are scoped to one account; the
// account reference is the portfolio id it mirrors.
type BrokerClient interface {
	SubmitOrder(ctx context.Context, txn *Transaction) (*BrokerOrderResult, error)
	GetOrderStatus(ctx context.Context, orderRef string) (*BrokerOrder, error)
	GetPositions(ctx context.Context, account string) ([]BrokerPosition, error)
}
