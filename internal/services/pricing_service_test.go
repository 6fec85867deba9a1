package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"order_ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComputePrice_Tiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		code      string
		hint      string
		supplier  *int64
		wantTier  Tier
		wantPrice int64
		wantCost  int64
	}{
		{"ctv prefix", "MAVC001", "", ptr(f.supplierB.ID), TierCTV, 132000, 120000},
		{"retail prefix", "MAVL001", "", ptr(f.supplierB.ID), TierRetail, 172000, 120000},
		{"promo prefix", "MAVK001", "", ptr(f.supplierB.ID), TierPromo, 154000, 120000},
		{"gift prefix", "MAVT001", "", ptr(f.supplierB.ID), TierGift, 0, 120000},
		{"import prefix uses the selected supplier", "MAVN001", "", ptr(f.supplierA.ID), TierImportPassthrough, 100000, 100000},
		{"student prefix", "MAVS001", "", ptr(f.supplierB.ID), TierStudent, 132000, 120000},
		{"hint without prefix", "ORD-9", "ctv", ptr(f.supplierB.ID), TierCTV, 132000, 120000},
		{"no tier falls back to customer price", "ORD-9", "", ptr(f.supplierB.ID), TierUnknown, 172000, 120000},
		{"no supplier uses the highest quote as cost", "MAVL002", "", nil, TierRetail, 172000, 120000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := f.pricing.ComputePrice(ctx, PriceRequest{
				VariantName:  testVariant,
				OrderCode:    tt.code,
				CustomerType: tt.hint,
				SupplierID:   tt.supplier,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, quote.Tier)
			assert.Equal(t, tt.wantPrice, quote.Price)
			assert.Equal(t, tt.wantPrice, quote.TotalPrice)
			assert.Equal(t, tt.wantCost, quote.Cost)
		})
	}
}

func TestComputePrice_QuoteBreakdown(t *testing.T) {
	f := newFixture(t)

	quote, err := f.pricing.ComputePrice(context.Background(), PriceRequest{
		VariantName: testVariant,
		OrderCode:   "MAVC123",
		SupplierID:  ptr(f.supplierB.ID),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(120000), quote.Cost)
	assert.Equal(t, int64(132000), quote.Price)
	assert.Equal(t, int64(132000), quote.ResellPrice)
	// 120000 * 1.1 * 1.3 = 171600
	assert.Equal(t, int64(172000), quote.CustomerPrice)
	assert.Equal(t, int64(17000), quote.Promo)
	assert.Equal(t, int64(155000), quote.PromoPrice)
	assert.Equal(t, quote.PromoPrice, quote.PricePromo)
	assert.Equal(t, 30, quote.Days)
	assert.Equal(t, "15/07/2024", quote.OrderExpired)
}

func TestComputePrice_OrderDateDrivesExpiry(t *testing.T) {
	f := newFixture(t)

	quote, err := f.pricing.ComputePrice(context.Background(), PriceRequest{
		VariantName: testVariant,
		OrderCode:   "MAVL001",
		OrderDate:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "02/03/2024", quote.OrderExpired)
}

func TestComputePrice_PromoStoredAsPercentage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pricing.UpsertPriceConfig(ctx, PriceConfigInput{
		VariantName: testVariant,
		PctCtv:      dec("1.1"),
		PctKhach:    dec("1.3"),
		PctPromo:    dec("10"),
	})
	require.NoError(t, err)

	quote, err := f.pricing.ComputePrice(ctx, PriceRequest{VariantName: testVariant, OrderCode: "MAVK001", SupplierID: ptr(f.supplierB.ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(154000), quote.Price)
	assert.Equal(t, int64(17000), quote.Promo)
}

func TestComputePrice_WithoutConfigUsesUnitRatios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := &models.Variant{Name: "Spotify Family --3m"}
	require.NoError(t, f.store.Variants().Create(ctx, variant))
	require.NoError(t, f.store.Variants().AddSupplierCost(ctx, &models.SupplierCost{VariantID: variant.ID, SourceID: f.supplierA.ID, Price: 80400}))

	quote, err := f.pricing.ComputePrice(ctx, PriceRequest{VariantName: variant.Name, OrderCode: "MAVL001"})
	require.NoError(t, err)
	assert.Equal(t, int64(80000), quote.Price)
	assert.Equal(t, int64(80000), quote.Cost)
	assert.Equal(t, int64(0), quote.Promo)
	assert.Equal(t, 90, quote.Days)
}

func TestComputePrice_PreviousCostFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	variant := &models.Variant{Name: "YouTube Premium --2m"}
	require.NoError(t, f.store.Variants().Create(ctx, variant))

	quote, err := f.pricing.ComputePrice(ctx, PriceRequest{
		VariantName:  variant.Name,
		OrderCode:    "MAVN001",
		SupplierID:   ptr(f.supplierA.ID),
		PreviousCost: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), quote.Cost)
	assert.Equal(t, int64(50000), quote.Price)
	assert.Equal(t, 60, quote.Days)
}

func TestComputePrice_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Variants().Create(ctx, &models.Variant{Name: "Unquoted --1m"}))

	tests := []struct {
		name    string
		variant string
		wantErr error
	}{
		{"blank name", "  ", ErrMissingProductName},
		{"unknown variant", "Disney+ --1m", ErrVariantNotFound},
		{"variant without quotes", "Unquoted --1m", ErrNoSupplierPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pricing.ComputePrice(ctx, PriceRequest{VariantName: tt.variant, OrderCode: "MAVL001"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type fakeProfileCache struct {
	mu       sync.Mutex
	profiles map[string]*models.PricingProfile
	hits     int
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{profiles: map[string]*models.PricingProfile{}}
}

func (c *fakeProfileCache) GetProfile(_ context.Context, name string) (*models.PricingProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[name]
	if ok {
		c.hits++
	}
	return p, nil
}

func (c *fakeProfileCache) SetProfile(_ context.Context, name string, p *models.PricingProfile, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[name] = p
	return nil
}

func (c *fakeProfileCache) DeleteProfile(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, name)
	return nil
}

func TestPricingService_ProfileCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newFakeProfileCache()
	pricing := NewPricingService(f.store, cache, PricingOptions{CacheTTL: time.Minute, Now: func() time.Time { return testNow }}, zap.NewNop())

	req := PriceRequest{VariantName: testVariant, OrderCode: "MAVC001", SupplierID: ptr(f.supplierB.ID)}
	_, err := pricing.ComputePrice(ctx, req)
	require.NoError(t, err)
	require.Contains(t, cache.profiles, testVariant)

	quote, err := pricing.ComputePrice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, int64(132000), quote.Price)

	_, err = pricing.UpsertPriceConfig(ctx, PriceConfigInput{VariantName: testVariant, PctCtv: dec("1.2")})
	require.NoError(t, err)
	assert.NotContains(t, cache.profiles, testVariant)

	quote, err = pricing.ComputePrice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(144000), quote.Price)
}

func TestUpsertPriceConfig_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pricing.UpsertPriceConfig(ctx, PriceConfigInput{VariantName: ""})
	assert.ErrorIs(t, err, ErrMissingProductName)

	_, err = f.pricing.UpsertPriceConfig(ctx, PriceConfigInput{VariantName: "Nope --1m", PctCtv: dec("1.1")})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	_, err = f.pricing.UpsertPriceConfig(ctx, PriceConfigInput{VariantName: testVariant, PctCtv: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestAddSupplierCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pricing.AddSupplierCost(ctx, SupplierCostInput{VariantName: testVariant, SupplierID: 99, Price: 1000})
	assert.ErrorIs(t, err, ErrSupplierNotFound)

	_, err = f.pricing.AddSupplierCost(ctx, SupplierCostInput{VariantName: testVariant, SupplierID: f.supplierA.ID, Price: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	cost, err := f.pricing.AddSupplierCost(ctx, SupplierCostInput{VariantName: "Canva Pro --12m", SupplierID: f.supplierA.ID, Price: 250000})
	require.NoError(t, err)
	assert.NotZero(t, cost.ID)

	quote, err := f.pricing.ComputePrice(ctx, PriceRequest{VariantName: "Canva Pro --12m", OrderCode: "MAVN001", SupplierID: ptr(f.supplierA.ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), quote.Price)
	assert.Equal(t, 360, quote.Days)

	// a newer quote from the same supplier replaces the old one
	_, err = f.pricing.AddSupplierCost(ctx, SupplierCostInput{VariantName: "Canva Pro --12m", SupplierID: f.supplierA.ID, Price: 200000})
	require.NoError(t, err)
	quote, err = f.pricing.ComputePrice(ctx, PriceRequest{VariantName: "Canva Pro --12m", OrderCode: "MAVN001", SupplierID: ptr(f.supplierA.ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), quote.Cost)
}

func TestPriceFromCosts_PricesAreWholeThousands(t *testing.T) {
	cfg := &models.PriceConfig{PctCtv: dec("1.07"), PctKhach: dec("1.33"), PctPromo: dec("12.5")}
	tiers := []Tier{TierUnknown, TierCTV, TierRetail, TierPromo, TierGift, TierImportPassthrough, TierStudent}

	for base := int64(1); base <= 400000; base += 7919 {
		for _, tier := range tiers {
			q := priceFromCosts(base, base/2, cfg, tier)
			if q.Price < 0 || q.Cost < 0 || q.Price%1000 != 0 || q.Cost%1000 != 0 {
				t.Fatalf("base %d tier %s: price %d cost %d", base, tier, q.Price, q.Cost)
			}
		}
	}
}
