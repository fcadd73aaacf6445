package service

import (
	"context"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

// TransactionService handles transaction history queries.
// Transactions are created only by TradeService and never modified.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
	portfolioRepo   *repository.PortfolioRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
	portfolioRepo *repository.PortfolioRepository,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		portfolioRepo:   portfolioRepo,
	}
}

// ListTransactions returns the session user's transactions matching filters, newest first.
// Filtering by a portfolio the user does not own fails with ErrPortfolioNotFound.
func (s *TransactionService) ListTransactions(ctx context.Context, session model.Session, filters model.TransactionFilters) ([]model.Transaction, error) {
	if filters.PortfolioID != "" {
		if _, err := s.portfolioRepo.GetPortfolioForUser(ctx, filters.PortfolioID, session.UserID); err != nil {
			return nil, storeError(err)
		}
	}

	transactions, err := s.transactionRepo.GetTransactions(ctx, session.UserID, filters)
	if err != nil {
		return nil, storeError(err)
	}
	return transactions, nil
}

// GetTransaction retrieves a single transaction owned by the session user.
func (s *TransactionService) GetTransaction(ctx context.Context, session model.Session, transactionID string) (model.Transaction, error) {
	t, err := s.transactionRepo.GetTransaction(ctx, transactionID, session.UserID)
	if err != nil {
		return model.Transaction{}, storeError(err)
	}
	return t, nil
}
