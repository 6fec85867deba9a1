package repository

import (
	"context"

	"order_ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerLockSpace keeps supplier advisory locks apart from other advisory lock users.
const ledgerLockSpace int64 = 0x4c454447 << 32

type cycleRepository struct {
	db *gorm.DB
}

func NewCycleRepository(db *gorm.DB) CycleRepository {
	return &cycleRepository{db: db}
}

func (r *cycleRepository) LockSupplier(ctx context.Context, supplierID int64) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", ledgerLockSpace+supplierID).Error
}

func (r *cycleRepository) Latest(ctx context.Context, supplierID int64) (*models.PaymentCycle, error) {
	var cycles []models.PaymentCycle
	err := r.db.WithContext(ctx).
		Where("source_id = ?", supplierID).
		Order("id DESC").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Limit(1).
		Find(&cycles).Error
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, nil
	}
	return &cycles[0], nil
}

func (r *cycleRepository) Create(ctx context.Context, cycle *models.PaymentCycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *cycleRepository) AddImport(ctx context.Context, id int64, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.PaymentCycle{}).
		Where("id = ?", id).
		Update("import", gorm.Expr(`"import" + ?`, delta)).Error
}

func (r *cycleRepository) AddPaid(ctx context.Context, id int64, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.PaymentCycle{}).
		Where("id = ?", id).
		Update("paid", gorm.Expr("paid + ?", delta)).Error
}

func (r *cycleRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]models.PaymentCycle, error) {
	var cycles []models.PaymentCycle
	err := r.db.WithContext(ctx).Where("source_id = ?", supplierID).Order("id DESC").Find(&cycles).Error
	return cycles, err
}
