package compliance

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Repository persists compliance check results in the append-only
// compliance_checks table. There is no update path: past reviews stay
// interpretable after policy changes.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a compliance check repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "compliance").Logger(),
	}
}

// NewReviewID returns a fresh ULID. Lexicographic order matches creation
// order, which suits an append-only audit trail.
func NewReviewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Save appends one review record.
func (r *Repository) Save(result *CheckResult) error {
	outcomesJSON, err := json.Marshal(result.Outcomes)
	if err != nil {
		return domain.NewPersistenceError("marshal check outcomes", err)
	}

	query := `
		INSERT INTO compliance_checks
		(review_id, transaction_id, portfolio_id, symbol, decision, score,
		 violations_json, policy_version, policy_checksum, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.ledgerDB.Exec(query,
		result.ReviewID,
		result.TransactionID,
		result.PortfolioID,
		result.Symbol,
		string(result.Decision),
		result.Score,
		string(outcomesJSON),
		result.PolicyVersion,
		result.PolicyChecksum,
		result.CheckedAt.Unix(),
	)
	if err != nil {
		return domain.NewPersistenceError("save compliance check", err)
	}

	r.log.Info().
		Str("review_id", result.ReviewID).
		Str("transaction_id", result.TransactionID).
		Str("decision", string(result.Decision)).
		Float64("score", result.Score).
		Msg("Compliance check recorded")

	return nil
}

// GetByReviewID retrieves one review record, annotated with the
// transaction's current status. Returns nil when not found.
func (r *Repository) GetByReviewID(reviewID string) (*CheckResult, error) {
	query := `
		SELECT c.review_id, c.transaction_id, c.portfolio_id, c.symbol, c.decision,
		       c.score, c.violations_json, c.policy_version, c.policy_checksum,
		       c.checked_at, COALESCE(t.status, '')
		FROM compliance_checks c
		LEFT JOIN transactions t ON t.id = c.transaction_id
		WHERE c.review_id = ?
	`

	var result CheckResult
	var decision, outcomesJSON, txnStatus string
	var checkedAt int64

	err := r.ledgerDB.QueryRow(query, reviewID).Scan(
		&result.ReviewID, &result.TransactionID, &result.PortfolioID, &result.Symbol,
		&decision, &result.Score, &outcomesJSON,
		&result.PolicyVersion, &result.PolicyChecksum, &checkedAt, &txnStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get compliance check", err)
	}

	result.Decision = Decision(decision)
	result.CheckedAt = time.Unix(checkedAt, 0).UTC()
	result.TransactionStatus = domain.TransactionStatus(txnStatus)
	if err := json.Unmarshal([]byte(outcomesJSON), &result.Outcomes); err != nil {
		return nil, domain.NewPersistenceError("unmarshal check outcomes", err)
	}

	return &result, nil
}

// ListByTransaction returns all reviews for a transaction, oldest first.
func (r *Repository) ListByTransaction(transactionID string) ([]CheckResult, error) {
	query := `
		SELECT c.review_id, c.transaction_id, c.portfolio_id, c.symbol, c.decision,
		       c.score, c.violations_json, c.policy_version, c.policy_checksum,
		       c.checked_at, COALESCE(t.status, '')
		FROM compliance_checks c
		LEFT JOIN transactions t ON t.id = c.transaction_id
		WHERE c.transaction_id = ?
		ORDER BY c.review_id ASC
	`

	rows, err := r.ledgerDB.Query(query, transactionID)
	if err != nil {
		return nil, domain.NewPersistenceError("list compliance checks", err)
	}
	defer rows.Close()

	var results []CheckResult
	for rows.Next() {
		var result CheckResult
		var decision, outcomesJSON, txnStatus string
		var checkedAt int64

		err := rows.Scan(
			&result.ReviewID, &result.TransactionID, &result.PortfolioID, &result.Symbol,
			&decision, &result.Score, &outcomesJSON,
			&result.PolicyVersion, &result.PolicyChecksum, &checkedAt, &txnStatus,
		)
		if err != nil {
			return nil, domain.NewPersistenceError("scan compliance check", err)
		}

		result.Decision = Decision(decision)
		result.CheckedAt = time.Unix(checkedAt, 0).UTC()
		result.TransactionStatus = domain.TransactionStatus(txnStatus)
		if err := json.Unmarshal([]byte(outcomesJSON), &result.Outcomes); err != nil {
			return nil, domain.NewPersistenceError("unmarshal check outcomes", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("list compliance checks", err)
	}

	return results, nil
}
