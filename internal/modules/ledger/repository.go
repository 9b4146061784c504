// Package ledger implements the trade lifecycle ledger: the authoritative
// local record of every transaction and its state transitions.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Repository handles transaction persistence in ledger.db.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a transaction repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Create inserts a new transaction with status pending. Assigns an id when
// the caller has not.
func (r *Repository) Create(txn *domain.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	txn.Status = domain.StatusPending
	txn.CreatedAt = now
	txn.UpdatedAt = now

	query := `
		INSERT INTO transactions
		(id, portfolio_id, user_id, symbol, side, quantity, price, status,
		 broker_order_ref, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.ledgerDB.Exec(query,
		txn.ID,
		txn.PortfolioID,
		txn.UserID,
		strings.ToUpper(strings.TrimSpace(txn.Symbol)),
		string(txn.Side),
		txn.Quantity,
		txn.Price,
		string(txn.Status),
		nullString(txn.BrokerOrderRef),
		txn.Notes,
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return domain.NewPersistenceError("create transaction", err)
	}

	r.log.Info().
		Str("transaction_id", txn.ID).
		Str("symbol", txn.Symbol).
		Str("side", string(txn.Side)).
		Float64("quantity", txn.Quantity).
		Msg("Transaction created")

	return nil
}

// GetByID retrieves a transaction by id. Returns nil when not found.
func (r *Repository) GetByID(id string) (*domain.Transaction, error) {
	row := r.ledgerDB.QueryRow(selectColumns+" WHERE id = ?", id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get transaction", err)
	}
	return txn, nil
}

// GetByBrokerRef retrieves a transaction by broker order reference.
func (r *Repository) GetByBrokerRef(ref string) (*domain.Transaction, error) {
	row := r.ledgerDB.QueryRow(selectColumns+" WHERE broker_order_ref = ?", ref)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get transaction by broker ref", err)
	}
	return txn, nil
}

// GetPending returns all pending transactions for a portfolio, oldest first.
func (r *Repository) GetPending(portfolioID string) ([]domain.Transaction, error) {
	query := selectColumns + " WHERE portfolio_id = ? AND status = 'pending' ORDER BY created_at ASC"
	return r.queryTransactions(query, portfolioID)
}

// SetBrokerRef stamps the broker order reference after submission.
func (r *Repository) SetBrokerRef(id, ref string) error {
	_, err := r.ledgerDB.Exec(
		"UPDATE transactions SET broker_order_ref = ?, updated_at = ? WHERE id = ?",
		ref, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return domain.NewPersistenceError("set broker ref", err)
	}
	return nil
}

// Transition moves a pending transaction to a terminal state. The note is
// mandatory: every transition documents its cause in the audit trail.
// Returns ConflictError if the transaction is already terminal; the status
// is never mutated on conflict.
func (r *Repository) Transition(id string, to domain.TransactionStatus, note string) error {
	return r.transition(id, to, note, nil)
}

// MarkExecuted transitions to executed and records the fill price in the
// same guarded update.
func (r *Repository) MarkExecuted(id, note string, fillPrice float64) error {
	return r.transition(id, domain.StatusExecuted, note, &fillPrice)
}

func (r *Repository) transition(id string, to domain.TransactionStatus, note string, fillPrice *float64) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("transition to %s requires a note", to)
	}
	if !domain.StatusPending.CanTransitionTo(to) {
		return fmt.Errorf("invalid target status %q", to)
	}

	now := time.Now().UTC()
	line := fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), note)

	// Single guarded update: only a pending row matches, so duplicate or
	// out-of-order sync passes cannot re-apply a transition.
	query := `
		UPDATE transactions
		SET status = ?,
		    notes = CASE WHEN notes = '' THEN ? ELSE notes || char(10) || ? END,
		    updated_at = ?`
	args := []interface{}{string(to), line, line, now.Unix()}
	if fillPrice != nil {
		query += ", price = ?"
		args = append(args, *fillPrice)
	}
	query += " WHERE id = ? AND status = 'pending'"
	args = append(args, id)

	result, err := r.ledgerDB.Exec(query, args...)
	if err != nil {
		return domain.NewPersistenceError("transition transaction", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.NewPersistenceError("transition transaction", err)
	}
	if affected == 0 {
		current, err := r.GetByID(id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("transaction %s not found", id)
		}
		return domain.NewConflictError(id, current.Status, to)
	}

	r.log.Info().
		Str("transaction_id", id).
		Str("status", string(to)).
		Str("note", note).
		Msg("Transaction transitioned")

	return nil
}

// HistoryBySymbol returns pending and executed transactions for a symbol
// within [from, to], boundaries inclusive. Used by the wash-sale rule and
// the harvesting analyzer.
func (r *Repository) HistoryBySymbol(portfolioID, symbol string, from, to time.Time) ([]domain.Transaction, error) {
	query := selectColumns + `
		WHERE portfolio_id = ?
		  AND symbol = ?
		  AND status IN ('pending', 'executed')
		  AND created_at >= ?
		  AND created_at <= ?
		ORDER BY created_at ASC
	`
	return r.queryTransactions(query,
		portfolioID, strings.ToUpper(strings.TrimSpace(symbol)), from.Unix(), to.Unix())
}

// DayTradeCount counts same-day round trips (a buy and a sell of the same
// symbol on the same calendar day) over executed transactions since the
// given time. Each day contributes min(buys, sells) per symbol.
func (r *Repository) DayTradeCount(portfolioID string, since time.Time) (int, error) {
	query := `
		SELECT symbol,
		       date(created_at, 'unixepoch') AS day,
		       SUM(CASE WHEN side = 'buy' THEN 1 ELSE 0 END) AS buys,
		       SUM(CASE WHEN side = 'sell' THEN 1 ELSE 0 END) AS sells
		FROM transactions
		WHERE portfolio_id = ?
		  AND status = 'executed'
		  AND created_at >= ?
		GROUP BY symbol, day
	`

	rows, err := r.ledgerDB.Query(query, portfolioID, since.Unix())
	if err != nil {
		return 0, domain.NewPersistenceError("count day trades", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var symbol, day string
		var buys, sells int
		if err := rows.Scan(&symbol, &day, &buys, &sells); err != nil {
			return 0, domain.NewPersistenceError("count day trades", err)
		}
		if buys < sells {
			count += buys
		} else {
			count += sells
		}
	}
	if err := rows.Err(); err != nil {
		return 0, domain.NewPersistenceError("count day trades", err)
	}

	return count, nil
}

// ListPortfolios returns the distinct portfolio ids in the ledger.
func (r *Repository) ListPortfolios() ([]string, error) {
	rows, err := r.ledgerDB.Query("SELECT DISTINCT portfolio_id FROM transactions ORDER BY portfolio_id")
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

const selectColumns = `
	SELECT id, portfolio_id, user_id, symbol, side, quantity, price, status,
	       broker_order_ref, notes, created_at, updated_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	var side, status string
	var brokerRef sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&txn.ID, &txn.PortfolioID, &txn.UserID, &txn.Symbol,
		&side, &txn.Quantity, &txn.Price, &status,
		&brokerRef, &txn.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Side = domain.Side(side)
	txn.Status = domain.TransactionStatus(status)
	txn.BrokerOrderRef = brokerRef.String
	txn.CreatedAt = time.Unix(createdAt, 0).UTC()
	txn.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &txn, nil
}

func (r *Repository) queryTransactions(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("query transactions", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan transaction", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("query transactions", err)
	}

	return txns, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
