package migrations

import (
	"context"
	"fmt"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table the engine uses.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Order{},
		&models.ExpiredOrder{},
		&models.CanceledOrder{},
		&models.IDSequence{},
		&models.Supplier{},
		&models.SupplierCost{},
		&models.PaymentCycle{},
		&models.Variant{},
		&models.PriceConfig{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// DemoVariant is the variant SeedDemoData creates.
const DemoVariant = "Netflix Premium --1m"

// SeedDemoData creates a variant quoted by two suppliers with a percentage
// config. It does nothing when the variant already exists.
func SeedDemoData(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	store := repository.New(db)

	existing, err := store.Variants().GetByName(ctx, DemoVariant)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info("demo data already present", zap.String("variant", DemoVariant))
		return nil
	}

	return store.WithTx(ctx, func(tx repository.Store) error {
		variant := &models.Variant{Name: DemoVariant}
		if err := tx.Variants().Create(ctx, variant); err != nil {
			return err
		}

		quotes := []struct {
			supplier string
			price    int64
		}{
			{"Supplier A", 100000},
			{"Supplier B", 120000},
		}
		for _, q := range quotes {
			supplier, err := tx.Suppliers().GetByName(ctx, q.supplier)
			if err != nil {
				return err
			}
			if supplier == nil {
				supplier = &models.Supplier{Name: q.supplier}
				if err := tx.Suppliers().Create(ctx, supplier); err != nil {
					return err
				}
			}
			cost := &models.SupplierCost{VariantID: variant.ID, SourceID: supplier.ID, Price: q.price}
			if err := tx.Variants().AddSupplierCost(ctx, cost); err != nil {
				return err
			}
		}

		cfg := &models.PriceConfig{
			VariantID: variant.ID,
			PctCtv:    decimal.NewNullDecimal(decimal.RequireFromString("1.1")),
			PctKhach:  decimal.NewNullDecimal(decimal.RequireFromString("1.3")),
			PctPromo:  decimal.NewNullDecimal(decimal.RequireFromString("0.1")),
		}
		if err := tx.Variants().UpsertPriceConfig(ctx, cfg); err != nil {
			return err
		}

		log.Info("demo data created", zap.String("variant", DemoVariant), zap.Int64("variant_id", variant.ID))
		return nil
	})
}
