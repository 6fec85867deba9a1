package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingProductName = errors.New("product name is required")
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidPatch       = errors.New("invalid patch")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrInvalidAmount      = errors.New("amount must be > 0")

	ErrVariantNotFound  = errors.New("variant not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrArchiveNotFound  = errors.New("archived order not found")

	ErrNoSupplierPrice = errors.New("no supplier price for variant")

	ErrTransactionFailed = errors.New("transaction failed")
)

// LedgerWarning reports a supplier ledger adjustment that failed and was
// rolled back on its own while the order mutation itself committed.
type LedgerWarning struct {
	SupplierID int64  `json:"supplier_id"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
}

func (w *LedgerWarning) String() string {
	return fmt.Sprintf("ledger adjustment of %d for supplier %d failed: %s", w.Amount, w.SupplierID, w.Message)
}

// txFailed wraps a storage error so callers can match ErrTransactionFailed
// while sentinel errors raised inside the transaction keep their identity.
func txFailed(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrMissingProductName, ErrInvalidID, ErrInvalidPatch, ErrInvalidStatus, ErrInvalidTransition, ErrInvalidAmount,
		ErrVariantNotFound, ErrOrderNotFound, ErrSupplierNotFound, ErrArchiveNotFound, ErrNoSupplierPrice,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}
