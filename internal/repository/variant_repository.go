package repository

import (
	"context"
	"errors"

	"order_ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) Create(ctx context.Context, variant *models.Variant) error {
	return mapError(r.db.WithContext(ctx).Create(variant).Error)
}

func (r *variantRepository) GetByName(ctx context.Context, name string) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) GetPriceConfig(ctx context.Context, variantID int64) (*models.PriceConfig, error) {
	var cfg models.PriceConfig
	err := r.db.WithContext(ctx).Where("variant_id = ?", variantID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *variantRepository) UpsertPriceConfig(ctx context.Context, cfg *models.PriceConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pct_ctv", "pct_khach", "pct_promo", "updated_at"}),
	}).Create(cfg).Error
}

func (r *variantRepository) AddSupplierCost(ctx context.Context, cost *models.SupplierCost) error {
	return r.db.WithContext(ctx).Create(cost).Error
}

func (r *variantRepository) MaxSupplierCost(ctx context.Context, variantID int64) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&models.SupplierCost{}).
		Where("variant_id = ?", variantID).
		Select("COALESCE(MAX(price), 0)").
		Scan(&max).Error
	return max, err
}

func (r *variantRepository) LatestSupplierCost(ctx context.Context, variantID, supplierID int64) (int64, bool, error) {
	var costs []models.SupplierCost
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND source_id = ?", variantID, supplierID).
		Order("id DESC").
		Limit(1).
		Find(&costs).Error
	if err != nil || len(costs) == 0 {
		return 0, false, err
	}
	return costs[0].Price, true, nil
}
