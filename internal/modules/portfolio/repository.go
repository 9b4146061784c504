// Package portfolio implements the holdings store. Holdings are mutated
// only by reconciliation or explicit corrections.
package portfolio

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Repository handles holdings persistence in portfolio.db.
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewRepository creates a holdings repository
func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "portfolio").Logger(),
	}
}

// Upsert writes a holding keyed by (portfolio_id, symbol).
func (r *Repository) Upsert(h domain.Holding) error {
	query := `
		INSERT INTO holdings (portfolio_id, symbol, quantity, average_cost, current_price, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			current_price = excluded.current_price,
			last_updated = excluded.last_updated
	`

	_, err := r.portfolioDB.Exec(query,
		h.PortfolioID,
		strings.ToUpper(strings.TrimSpace(h.Symbol)),
		h.Quantity,
		h.AverageCost,
		h.CurrentPrice,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return domain.NewPersistenceError("upsert holding", err)
	}

	return nil
}

// Get retrieves one holding. Returns nil when the position does not exist.
func (r *Repository) Get(portfolioID, symbol string) (*domain.Holding, error) {
	query := `
		SELECT portfolio_id, symbol, quantity, average_cost, current_price, last_updated
		FROM holdings
		WHERE portfolio_id = ? AND symbol = ?
	`

	row := r.portfolioDB.QueryRow(query, portfolioID, strings.ToUpper(strings.TrimSpace(symbol)))
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get holding", err)
	}
	return h, nil
}

// GetAll returns every holding in a portfolio, symbol order.
func (r *Repository) GetAll(portfolioID string) ([]domain.Holding, error) {
	query := `
		SELECT portfolio_id, symbol, quantity, average_cost, current_price, last_updated
		FROM holdings
		WHERE portfolio_id = ?
		ORDER BY symbol ASC
	`

	rows, err := r.portfolioDB.Query(query, portfolioID)
	if err != nil {
		return nil, domain.NewPersistenceError("get holdings", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan holding", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("get holdings", err)
	}

	return holdings, nil
}

// TotalValue returns the portfolio's total market value over non-zero
// positions.
func (r *Repository) TotalValue(portfolioID string) (float64, error) {
	var total sql.NullFloat64
	err := r.portfolioDB.QueryRow(
		"SELECT SUM(quantity * current_price) FROM holdings WHERE portfolio_id = ?",
		portfolioID,
	).Scan(&total)
	if err != nil {
		return 0, domain.NewPersistenceError("total portfolio value", err)
	}
	return total.Float64, nil
}

// ZeroAbsent zeroes every holding not named in present. Positions are
// never deleted so history stays reconstructable.
func (r *Repository) ZeroAbsent(portfolioID string, present []string) (int, error) {
	seen := make(map[string]bool, len(present))
	for _, s := range present {
		seen[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	holdings, err := r.GetAll(portfolioID)
	if err != nil {
		return 0, err
	}

	zeroed := 0
	now := time.Now().UTC().Unix()
	for _, h := range holdings {
		if seen[h.Symbol] || h.Quantity == 0 {
			continue
		}
		_, err := r.portfolioDB.Exec(
			"UPDATE holdings SET quantity = 0, last_updated = ? WHERE portfolio_id = ? AND symbol = ?",
			now, portfolioID, h.Symbol,
		)
		if err != nil {
			return zeroed, domain.NewPersistenceError("zero holding", err)
		}
		r.log.Info().
			Str("portfolio_id", portfolioID).
			Str("symbol", h.Symbol).
			Msg("Position absent from broker data, zeroed")
		zeroed++
	}

	return zeroed, nil
}

// ListPortfolios returns the distinct portfolio ids with holdings.
func (r *Repository) ListPortfolios() ([]string, error) {
	rows, err := r.portfolioDB.Query("SELECT DISTINCT portfolio_id FROM holdings ORDER BY portfolio_id")
	if err != nil {
		return nil, domain.NewPersistenceError("list portfolios", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewPersistenceError("list portfolios", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("list portfolios", err)
	}

	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	var lastUpdated int64

	err := row.Scan(&h.PortfolioID, &h.Symbol, &h.Quantity, &h.AverageCost, &h.CurrentPrice, &lastUpdated)
	if err != nil {
		return nil, err
	}

	h.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	return &h, nil
}
