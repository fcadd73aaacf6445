package service

import (
	"errors"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
)

// notFoundErrors pass through storeError untouched so handlers can map them to 404.
var notFoundErrors = []error{
	apperrors.ErrPortfolioNotFound,
	apperrors.ErrTransactionNotFound,
	apperrors.ErrHoldingNotFound,
	apperrors.ErrProfileNotFound,
}

// storeError marks a repository failure as ErrStoreUnavailable unless it is a
// not-found condition.
//
// Example:
//
//	storeError(apperrors.ErrPortfolioNotFound)   // returned unchanged
//	storeError(errors.New("disk I/O error"))     // "data store unavailable: disk I/O error"
func storeError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, apperrors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
}
