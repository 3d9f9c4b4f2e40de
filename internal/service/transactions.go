package service

import (
	"context"
	"strings"

	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

// TransactionService exposes the stored ledger.
type TransactionService struct {
	txns *repository.TransactionRepo
}

func NewTransactionService(txns *repository.TransactionRepo) *TransactionService {
	return &TransactionService{txns: txns}
}

// List returns the user's transactions, optionally filtered by source.
func (s *TransactionService) List(ctx context.Context, userID, source string) ([]repository.Transaction, error) {
	source = strings.ToUpper(strings.TrimSpace(source))
	switch source {
	case "", repository.SourceAA, repository.SourceSMS, repository.SourceEmail:
	default:
		return nil, fault.Newf(fault.Validation, "unknown source %q", source)
	}
	return s.txns.ListForUser(ctx, userID, source)
}

// Get returns one transaction owned by the user.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*repository.Transaction, error) {
	t, err := s.txns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.UserID != userID {
		return nil, fault.New(fault.NotFound, "transaction not found")
	}
	return t, nil
}
