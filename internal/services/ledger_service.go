package services

import (
	"context"
	"fmt"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService keeps the per-supplier payment cycles. Methods that take a
// repository.Store run against that store so callers can scope them to a
// transaction or savepoint.
type LedgerService interface {
	IncreaseDebt(ctx context.Context, tx repository.Store, supplierID, amount int64, asOf time.Time) error
	DecreaseDebt(ctx context.Context, tx repository.Store, supplierID, amount int64, asOf time.Time) error
	// AdjustSupplierDebtIfNeeded reverses supplier debt for an order leaving
	// the live table and returns the amount taken off (0 for a no-op).
	AdjustSupplierDebtIfNeeded(ctx context.Context, tx repository.Store, view OrderView) (int64, error)
	// AddSupplierImportOnCheck charges the supplier the first time an unpaid
	// order is flagged for import and returns the amount added.
	AddSupplierImportOnCheck(ctx context.Context, tx repository.Store, before, after *models.Order) (int64, error)
	RecordPayment(ctx context.Context, supplierID, amount int64) (*models.PaymentCycle, error)
	ListCycles(ctx context.Context, supplierID int64) ([]models.PaymentCycle, error)
}

type ledgerService struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewLedgerService(store repository.Store, log *zap.Logger, now func() time.Time) LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ledgerService{store: store, log: log, now: now}
}

func (s *ledgerService) IncreaseDebt(ctx context.Context, tx repository.Store, supplierID, amount int64, asOf time.Time) error {
	if amount <= 0 {
		return nil
	}
	return s.applyImport(ctx, tx, supplierID, amount, asOf)
}

func (s *ledgerService) DecreaseDebt(ctx context.Context, tx repository.Store, supplierID, amount int64, asOf time.Time) error {
	if amount <= 0 {
		return nil
	}
	return s.applyImport(ctx, tx, supplierID, -amount, asOf)
}

// applyImport adds delta to the import of the supplier's current cycle,
// opening a cycle when the supplier has none.
func (s *ledgerService) applyImport(ctx context.Context, tx repository.Store, supplierID, delta int64, asOf time.Time) error {
	cycles := tx.Cycles()
	if err := cycles.LockSupplier(ctx, supplierID); err != nil {
		return fmt.Errorf("failed to lock supplier %d: %w", supplierID, err)
	}
	current, err := cycles.Latest(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("failed to read current cycle: %w", err)
	}
	if current == nil {
		cycle := &models.PaymentCycle{
			SourceID: supplierID,
			Import:   delta,
			Paid:     0,
			Round:    asOf.Format(models.DateLayout),
			Status:   models.StatusUnpaid.Label(),
		}
		if err := cycles.Create(ctx, cycle); err != nil {
			return fmt.Errorf("failed to open payment cycle: %w", err)
		}
		return nil
	}
	if err := cycles.AddImport(ctx, current.ID, delta); err != nil {
		return fmt.Errorf("failed to update cycle %d: %w", current.ID, err)
	}
	return nil
}

func (s *ledgerService) AdjustSupplierDebtIfNeeded(ctx context.Context, tx repository.Store, view OrderView) (int64, error) {
	if view.SupplyID == nil || view.CheckFlag == nil {
		return 0, nil
	}

	var amount int64
	switch {
	case view.State == models.StatusUnpaid && !*view.CheckFlag:
		amount = view.Cost
	case view.State == models.StatusPaid && *view.CheckFlag:
		if view.RemainingDays == nil || *view.RemainingDays <= 0 || view.TotalDays <= 0 {
			return 0, nil
		}
		amount = ceilToThousands(prorate(view.Cost, *view.RemainingDays, view.TotalDays))
	default:
		return 0, nil
	}
	if amount <= 0 {
		return 0, nil
	}

	if err := s.DecreaseDebt(ctx, tx, *view.SupplyID, amount, s.now()); err != nil {
		return amount, err
	}
	s.log.Info("supplier debt reversed",
		zap.Int64("order_id", view.ID),
		zap.Int64("supplier_id", *view.SupplyID),
		zap.Int64("cost", view.Cost),
		zap.Int64("amount", amount),
		zap.String("status", view.StatusCode),
	)
	return amount, nil
}

func (s *ledgerService) AddSupplierImportOnCheck(ctx context.Context, tx repository.Store, before, after *models.Order) (int64, error) {
	if before == nil || after == nil || after.SupplyID == nil {
		return 0, nil
	}
	if before.CheckFlag != nil || after.CheckFlag == nil || *after.CheckFlag {
		return 0, nil
	}
	if models.ParseStatus(after.Status) != models.StatusUnpaid {
		return 0, nil
	}
	if after.Cost <= 0 {
		return 0, nil
	}
	if err := s.IncreaseDebt(ctx, tx, *after.SupplyID, after.Cost, s.now()); err != nil {
		return after.Cost, err
	}
	return after.Cost, nil
}

func (s *ledgerService) RecordPayment(ctx context.Context, supplierID, amount int64) (*models.PaymentCycle, error) {
	if supplierID <= 0 {
		return nil, ErrInvalidID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var cycle *models.PaymentCycle
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		supplier, err := tx.Suppliers().GetByID(ctx, supplierID)
		if err != nil {
			return err
		}
		if supplier == nil {
			return fmt.Errorf("%w: %d", ErrSupplierNotFound, supplierID)
		}

		cycles := tx.Cycles()
		if err := cycles.LockSupplier(ctx, supplierID); err != nil {
			return err
		}
		current, err := cycles.Latest(ctx, supplierID)
		if err != nil {
			return err
		}
		if current == nil {
			current = &models.PaymentCycle{
				SourceID: supplierID,
				Paid:     amount,
				Round:    s.now().Format(models.DateLayout),
				Status:   models.StatusUnpaid.Label(),
			}
			if err := cycles.Create(ctx, current); err != nil {
				return err
			}
			cycle = current
			return nil
		}
		if err := cycles.AddPaid(ctx, current.ID, amount); err != nil {
			return err
		}
		cycle, err = cycles.Latest(ctx, supplierID)
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}
	s.log.Info("supplier payment recorded",
		zap.Int64("supplier_id", supplierID),
		zap.Int64("amount", amount),
		zap.Int64("cycle_id", cycle.ID),
	)
	return cycle, nil
}

func (s *ledgerService) ListCycles(ctx context.Context, supplierID int64) ([]models.PaymentCycle, error) {
	if supplierID <= 0 {
		return nil, ErrInvalidID
	}
	supplier, err := s.store.Suppliers().GetByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: %d", ErrSupplierNotFound, supplierID)
	}
	return s.store.Cycles().ListBySupplier(ctx, supplierID)
}

// CalcRemainingRefund is the share of price still owed to the customer for
// the unused part of the order, rounded to the nearest thousand.
func CalcRemainingRefund(price int64, days int, remainingDays *int) int64 {
	if price == 0 {
		return 0
	}
	if days == 0 || remainingDays == nil {
		return roundThousand(decimal.NewFromInt(price))
	}
	rd := *remainingDays
	if rd < 0 {
		rd = 0
	}
	return roundThousand(prorate(price, rd, days))
}

// ledgerWarning logs a failed ledger step and turns it into the warning
// handed back next to the committed order mutation.
func ledgerWarning(log *zap.Logger, order *models.Order, amount int64, err error) *LedgerWarning {
	var supplierID int64
	if order.SupplyID != nil {
		supplierID = *order.SupplyID
	}
	log.Warn("supplier ledger adjustment failed",
		zap.Int64("order_id", order.ID),
		zap.Int64("supplier_id", supplierID),
		zap.Int64("cost", order.Cost),
		zap.Int64("amount", amount),
		zap.String("status", order.Status),
		zap.Error(err),
	)
	return &LedgerWarning{SupplierID: supplierID, Amount: amount, Message: err.Error()}
}
