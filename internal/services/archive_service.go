package services

import (
	"context"
	"fmt"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"

	"go.uber.org/zap"
)

const (
	MovedToDeleted  = "deleted"
	MovedToCanceled = string(repository.ArchiveCanceled)
	MovedToExpired  = string(repository.ArchiveExpired)
)

// ArchiveOverride lets the caller fix the refund of a canceled order.
// can_hoan wins over gia_tri_con_lai.
type ArchiveOverride struct {
	CanHoan      *int64 `json:"can_hoan"`
	GiaTriConLai *int64 `json:"gia_tri_con_lai"`
}

type ArchiveResult struct {
	Success      bool           `json:"success"`
	MovedTo      string         `json:"movedTo"`
	DeletedOrder map[string]any `json:"deletedOrder"`
	ArchiveID    int64          `json:"archiveId,omitempty"`
	Warning      *LedgerWarning `json:"warning,omitempty"`
}

type ArchiveService interface {
	// DeleteOrderWithArchive removes a live order inside tx, hard deleting it
	// or moving it to one of the archive tables depending on its status.
	DeleteOrderWithArchive(ctx context.Context, tx repository.Store, view OrderView, override ArchiveOverride) (*ArchiveResult, error)
	ListArchived(ctx context.Context, kind repository.ArchiveKind, limit, offset int) ([]map[string]any, int64, error)
	GetArchived(ctx context.Context, kind repository.ArchiveKind, id int64) (map[string]any, error)
}

type archiveService struct {
	store  repository.Store
	ledger LedgerService
	log    *zap.Logger
	now    func() time.Time
}

func NewArchiveService(store repository.Store, ledger LedgerService, log *zap.Logger, now func() time.Time) ArchiveService {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &archiveService{store: store, ledger: ledger, log: log, now: now}
}

func (s *archiveService) DeleteOrderWithArchive(ctx context.Context, tx repository.Store, view OrderView, override ArchiveOverride) (*ArchiveResult, error) {
	result := &ArchiveResult{Success: true}

	var reversed int64
	err := tx.WithTx(ctx, func(sp repository.Store) error {
		var err error
		reversed, err = s.ledger.AdjustSupplierDebtIfNeeded(ctx, sp, view)
		return err
	})
	if err != nil {
		result.Warning = ledgerWarning(s.log, &view.Order, reversed, err)
	}

	now := s.now()
	row := view.Order.Row()

	var kind repository.ArchiveKind
	switch view.State {
	case models.StatusUnpaid:
		if err := tx.Orders().Delete(ctx, view.ID); err != nil {
			return nil, fmt.Errorf("failed to delete order %d: %w", view.ID, err)
		}
		result.MovedTo = MovedToDeleted
		result.DeletedOrder = row
		return result, nil

	case models.StatusPaid, models.StatusProcessing:
		kind = repository.ArchiveCanceled
		if view.RemainingDays != nil {
			row["days"] = max(0, *view.RemainingDays)
		}
		row["refund"] = refundFor(view, override)
		row["status"] = models.StatusPendingRefund.Label()
		row["created_at"] = now

	default:
		kind = repository.ArchiveExpired
		row["archived_at"] = now
		row["status"] = models.StatusExpired.Label()
	}

	archiveID, err := tx.IDs().NextID(ctx, kind.Table())
	if err != nil {
		return nil, err
	}
	row["id"] = archiveID

	columns, err := tx.Archives().Columns(kind)
	if err != nil {
		return nil, err
	}
	row = pruneColumns(row, columns)

	if err := tx.Archives().Insert(ctx, kind, row); err != nil {
		return nil, fmt.Errorf("failed to archive order %d into %s: %w", view.ID, kind.Table(), err)
	}
	if err := tx.Orders().Delete(ctx, view.ID); err != nil {
		return nil, fmt.Errorf("failed to delete order %d: %w", view.ID, err)
	}

	result.MovedTo = string(kind)
	result.ArchiveID = archiveID
	result.DeletedOrder = row
	return result, nil
}

func refundFor(view OrderView, override ArchiveOverride) int64 {
	for _, v := range []*int64{override.CanHoan, override.GiaTriConLai} {
		if v != nil {
			return max(0, *v)
		}
	}
	return CalcRemainingRefund(view.Price, view.Days, view.RemainingDays)
}

// pruneColumns drops the keys of row the target table has no column for.
func pruneColumns(row map[string]any, columns []string) map[string]any {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	out := make(map[string]any, len(columns))
	for k, v := range row {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (s *archiveService) ListArchived(ctx context.Context, kind repository.ArchiveKind, limit, offset int) ([]map[string]any, int64, error) {
	if kind.Table() == "" {
		return nil, 0, fmt.Errorf("%w: unknown archive %q", ErrInvalidID, kind)
	}
	return s.store.Archives().List(ctx, kind, limit, offset)
}

func (s *archiveService) GetArchived(ctx context.Context, kind repository.ArchiveKind, id int64) (map[string]any, error) {
	if kind.Table() == "" {
		return nil, fmt.Errorf("%w: unknown archive %q", ErrInvalidID, kind)
	}
	if id <= 0 {
		return nil, ErrInvalidID
	}
	row, err := s.store.Archives().Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s/%d", ErrArchiveNotFound, kind, id)
	}
	return row, nil
}
