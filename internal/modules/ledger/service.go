package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Service exposes lifecycle operations over the transaction repository.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a ledger service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "ledger").Logger(),
	}
}

// Repo exposes the underlying repository for read-side consumers.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Cancel attempts to cancel a pending transaction. The status is re-read
// immediately before the transition, and a fill that won the race surfaces
// as a ConflictError rather than a silent success.
func (s *Service) Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn, err := s.repo.GetByID(transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("transaction %s not found", transactionID)
	}
	if txn.Status.IsTerminal() {
		return nil, domain.NewConflictError(transactionID, txn.Status, domain.StatusCancelled)
	}

	// The guarded update decides the race: if reconciliation moved the row
	// between the read above and here, this fails with a ConflictError.
	if err := s.repo.Transition(transactionID, domain.StatusCancelled, "user cancelled"); err != nil {
		return nil, err
	}

	cancelled, err := s.repo.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("transaction_id", transactionID).Msg("Transaction cancelled")
	return cancelled, nil
}
