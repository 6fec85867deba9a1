package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testVariant = "Netflix Premium --1m"

var testNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

type recordingBus struct {
	mu       sync.Mutex
	created  []OrderCreatedEvent
	archived []OrderArchivedEvent
}

func (b *recordingBus) PublishOrderCreated(_ context.Context, e OrderCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, e)
	return nil
}

func (b *recordingBus) PublishOrderArchived(_ context.Context, e OrderArchivedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.archived = append(b.archived, e)
	return nil
}

type fixture struct {
	store   *memory.Store
	pricing PricingService
	ledger  LedgerService
	archive ArchiveService
	orders  *orderService
	events  *recordingBus

	variant   *models.Variant
	supplierA *models.Supplier
	supplierB *models.Supplier
}

// newFixture seeds one variant quoted at 100000 by supplier A and 120000 by
// supplier B, priced with ctv 1.1, khach 1.3 and promo 0.1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }

	store := memory.New()
	f := &fixture{store: store, events: &recordingBus{}}
	f.pricing = NewPricingService(store, nil, PricingOptions{DefaultDays: 30, Now: clock}, zap.NewNop())
	f.ledger = NewLedgerService(store, zap.NewNop(), clock)
	f.archive = NewArchiveService(store, f.ledger, zap.NewNop(), clock)
	f.orders = NewOrderService(store, f.pricing, f.ledger, f.archive, f.events, 30, zap.NewNop()).(*orderService)
	f.orders.now = clock

	f.supplierA = &models.Supplier{Name: "Supplier A"}
	require.NoError(t, store.Suppliers().Create(ctx, f.supplierA))
	f.supplierB = &models.Supplier{Name: "Supplier B"}
	require.NoError(t, store.Suppliers().Create(ctx, f.supplierB))

	f.variant = &models.Variant{Name: testVariant}
	require.NoError(t, store.Variants().Create(ctx, f.variant))
	require.NoError(t, store.Variants().AddSupplierCost(ctx, &models.SupplierCost{VariantID: f.variant.ID, SourceID: f.supplierA.ID, Price: 100000}))
	require.NoError(t, store.Variants().AddSupplierCost(ctx, &models.SupplierCost{VariantID: f.variant.ID, SourceID: f.supplierB.ID, Price: 120000}))
	require.NoError(t, store.Variants().UpsertPriceConfig(ctx, &models.PriceConfig{
		VariantID: f.variant.ID,
		PctCtv:    dec("1.1"),
		PctKhach:  dec("1.3"),
		PctPromo:  dec("0.1"),
	}))
	return f
}

// seedOrder inserts a live order ordered on 05/06/2024 for 30 days, so it has
// 20 days left at testNow. mutate adjusts it before the insert.
func (f *fixture) seedOrder(t *testing.T, mutate func(o *models.Order)) *models.Order {
	t.Helper()
	ctx := context.Background()

	id, err := f.store.IDs().NextID(ctx, "orders")
	require.NoError(t, err)

	orderDate := time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)
	o := &models.Order{
		ID:           id,
		IDOrder:      "MAVL001",
		IDProduct:    testVariant,
		Customer:     "Nguyen Van A",
		Contact:      "0900000000",
		OrderDate:    orderDate,
		Days:         30,
		OrderExpired: ptr(orderDate.AddDate(0, 0, 30)),
		SupplyID:     ptr(f.supplierB.ID),
		Cost:         90000,
		Price:        300000,
		Status:       models.StatusUnpaid.Label(),
	}
	if mutate != nil {
		mutate(o)
	}
	require.NoError(t, f.store.Orders().Create(ctx, o))
	return o
}

// debt is the import of the supplier's current cycle, 0 when it has none.
func (f *fixture) debt(t *testing.T, supplierID int64) int64 {
	t.Helper()
	cycle, err := f.store.Cycles().Latest(context.Background(), supplierID)
	require.NoError(t, err)
	if cycle == nil {
		return 0
	}
	return cycle.Import
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
