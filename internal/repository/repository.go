package repository

import (
	"context"

	"order_ledger/internal/models"

	"gorm.io/gorm"
)

type OrderFilter struct {
	Status   string
	SupplyID *int64
	Search   string
	Limit    int
	Offset   int
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	// GetForUpdate reads the row and holds a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Order, error)
	Update(ctx context.Context, id int64, changes map[string]any) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
}

// ArchiveKind names one of the two archive tables.
type ArchiveKind string

const (
	ArchiveExpired  ArchiveKind = "expired"
	ArchiveCanceled ArchiveKind = "canceled"
)

// Table returns the physical table of the archive, or "" for an unknown kind.
func (k ArchiveKind) Table() string {
	switch k {
	case ArchiveExpired:
		return models.ExpiredOrder{}.TableName()
	case ArchiveCanceled:
		return models.CanceledOrder{}.TableName()
	}
	return ""
}

// Model returns an empty value of the archive's gorm model.
func (k ArchiveKind) Model() any {
	switch k {
	case ArchiveExpired:
		return &models.ExpiredOrder{}
	case ArchiveCanceled:
		return &models.CanceledOrder{}
	}
	return nil
}

type ArchiveRepository interface {
	// Columns lists the columns the archive table accepts.
	Columns(kind ArchiveKind) ([]string, error)
	Insert(ctx context.Context, kind ArchiveKind, row map[string]any) error
	Get(ctx context.Context, kind ArchiveKind, id int64) (map[string]any, error)
	List(ctx context.Context, kind ArchiveKind, limit, offset int) ([]map[string]any, int64, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, id int64) (*models.Supplier, error)
	GetByName(ctx context.Context, name string) (*models.Supplier, error)
	List(ctx context.Context) ([]models.Supplier, error)
}

type CycleRepository interface {
	// LockSupplier serializes ledger writers of one supplier for the rest of the transaction.
	LockSupplier(ctx context.Context, supplierID int64) error
	// Latest returns the current cycle of the supplier, locked, or nil.
	Latest(ctx context.Context, supplierID int64) (*models.PaymentCycle, error)
	Create(ctx context.Context, cycle *models.PaymentCycle) error
	AddImport(ctx context.Context, id int64, delta int64) error
	AddPaid(ctx context.Context, id int64, delta int64) error
	ListBySupplier(ctx context.Context, supplierID int64) ([]models.PaymentCycle, error)
}

type VariantRepository interface {
	Create(ctx context.Context, variant *models.Variant) error
	GetByName(ctx context.Context, name string) (*models.Variant, error)
	GetPriceConfig(ctx context.Context, variantID int64) (*models.PriceConfig, error)
	UpsertPriceConfig(ctx context.Context, cfg *models.PriceConfig) error
	AddSupplierCost(ctx context.Context, cost *models.SupplierCost) error
	// MaxSupplierCost is the highest quote across all suppliers, 0 when none.
	MaxSupplierCost(ctx context.Context, variantID int64) (int64, error)
	// LatestSupplierCost is the newest quote of one supplier; ok is false when none exists.
	LatestSupplierCost(ctx context.Context, variantID, supplierID int64) (price int64, ok bool, err error)
}

// IDAllocator hands out primary keys for tables without a native sequence.
// It must run inside the transaction that inserts the row.
type IDAllocator interface {
	NextID(ctx context.Context, table string) (int64, error)
}

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Orders() OrderRepository
	Archives() ArchiveRepository
	Suppliers() SupplierRepository
	Cycles() CycleRepository
	Variants() VariantRepository
	IDs() IDAllocator
	// WithTx runs fn in a transaction. Called on a store that is already
	// inside a transaction it opens a savepoint, so a failing fn only undoes
	// its own writes.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Orders() OrderRepository       { return &orderRepository{db: s.db} }
func (s *gormStore) Archives() ArchiveRepository   { return &archiveRepository{db: s.db} }
func (s *gormStore) Suppliers() SupplierRepository { return &supplierRepository{db: s.db} }
func (s *gormStore) Cycles() CycleRepository       { return &cycleRepository{db: s.db} }
func (s *gormStore) Variants() VariantRepository   { return &variantRepository{db: s.db} }
func (s *gormStore) IDs() IDAllocator              { return &sequenceRepository{db: s.db} }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
