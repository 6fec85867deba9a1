package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ProfileCache stores pricing profiles by variant name. GetProfile returns
// nil, nil on a miss.
type ProfileCache interface {
	GetProfile(ctx context.Context, variantName string) (*models.PricingProfile, error)
	SetProfile(ctx context.Context, variantName string, profile *models.PricingProfile, ttl time.Duration) error
	DeleteProfile(ctx context.Context, variantName string) error
}

type PriceRequest struct {
	VariantName  string `json:"variantName"`
	OrderCode    string `json:"orderCode"`
	CustomerType string `json:"customerTypeHint"`
	SupplierID   *int64 `json:"supplierId"`
	// PreviousCost is the cost already on the order, used when the selected
	// supplier has no quote.
	PreviousCost int64     `json:"-"`
	OrderDate    time.Time `json:"-"`
}

type PriceQuote struct {
	Cost          int64     `json:"cost"`
	Price         int64     `json:"price"`
	PromoPrice    int64     `json:"promoPrice"`
	PricePromo    int64     `json:"pricePromo"`
	Promo         int64     `json:"promo"`
	ResellPrice   int64     `json:"resellPrice"`
	CustomerPrice int64     `json:"customerPrice"`
	TotalPrice    int64     `json:"totalPrice"`
	Days          int       `json:"days"`
	OrderExpired  string    `json:"order_expired"`
	Tier          Tier      `json:"tier"`
	ExpiresAt     time.Time `json:"-"`
}

type PriceConfigInput struct {
	VariantName string              `json:"variant_name"`
	PctCtv      decimal.NullDecimal `json:"pct_ctv"`
	PctKhach    decimal.NullDecimal `json:"pct_khach"`
	PctPromo    decimal.NullDecimal `json:"pct_promo"`
}

type SupplierCostInput struct {
	VariantName string `json:"variant_name"`
	SupplierID  int64  `json:"supplier_id"`
	Price       int64  `json:"price"`
}

type PricingService interface {
	ComputePrice(ctx context.Context, req PriceRequest) (*PriceQuote, error)
	UpsertPriceConfig(ctx context.Context, input PriceConfigInput) (*models.PriceConfig, error)
	AddSupplierCost(ctx context.Context, input SupplierCostInput) (*models.SupplierCost, error)
}

type PricingOptions struct {
	DefaultDays int
	CacheTTL    time.Duration
	Now         func() time.Time
}

type pricingService struct {
	store repository.Store
	cache ProfileCache
	opts  PricingOptions
	log   *zap.Logger
}

// NewPricingService builds the pricing engine. cache may be nil.
func NewPricingService(store repository.Store, cache ProfileCache, opts PricingOptions, log *zap.Logger) PricingService {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = daysPerMonth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &pricingService{store: store, cache: cache, opts: opts, log: log}
}

func (s *pricingService) ComputePrice(ctx context.Context, req PriceRequest) (*PriceQuote, error) {
	name := strings.TrimSpace(req.VariantName)
	if name == "" {
		return nil, ErrMissingProductName
	}

	profile, err := s.loadProfile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load variant %q: %w", name, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, name)
	}

	variants := s.store.Variants()
	baseForPricing, err := variants.MaxSupplierCost(ctx, profile.Variant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read supplier costs: %w", err)
	}

	var importBySource int64
	if req.SupplierID != nil {
		latest, ok, err := variants.LatestSupplierCost(ctx, profile.Variant.ID, *req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("failed to read supplier quote: %w", err)
		}
		if ok {
			importBySource = latest
		}
	}
	if importBySource <= 0 {
		importBySource = req.PreviousCost
	}
	if baseForPricing <= 0 && importBySource <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSupplierPrice, name)
	}

	quote := priceFromCosts(baseForPricing, importBySource, profile.Config, ClassifyTier(req.OrderCode, req.CustomerType))

	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = s.opts.Now()
	}
	quote.Days = DurationDays(name, s.opts.DefaultDays)
	quote.ExpiresAt = dateOnly(orderDate).AddDate(0, 0, quote.Days)
	quote.OrderExpired = quote.ExpiresAt.Format(models.DateLayout)
	return &quote, nil
}

// priceFromCosts derives every candidate price from the two base costs and
// selects the one for tier.
func priceFromCosts(baseForPricing, importBySource int64, cfg *models.PriceConfig, tier Tier) PriceQuote {
	pricingBase := baseForPricing
	if pricingBase <= 0 {
		pricingBase = importBySource
	}
	baseImport := importBySource
	if baseImport <= 0 {
		baseImport = baseForPricing
	}

	pctCtv, pctKhach, pctPromo := one, one, decimal.Zero
	if cfg != nil {
		pctCtv = ratioOr(cfg.PctCtv, one)
		pctKhach = ratioOr(cfg.PctKhach, one)
		pctPromo = ratioOr(cfg.PctPromo, decimal.Zero)
	}

	resellRaw := decimal.NewFromInt(pricingBase).Mul(pctCtv)
	customerRaw := resellRaw.Mul(pctKhach)

	resellPrice := roundThousand(resellRaw)
	customerPrice := roundThousand(customerRaw)
	baseCost := roundThousand(decimal.NewFromInt(baseImport))

	// pct_promo is stored either as a ratio (0.1) or a percentage (10)
	promoFactor := pctPromo
	if promoFactor.GreaterThan(one) {
		promoFactor = promoFactor.Div(hundred)
	}
	promoAmount := roundThousand(decimal.NewFromInt(customerPrice).Mul(promoFactor))
	promoPrice := customerPrice - promoAmount
	if promoPrice < 0 {
		promoPrice = 0
	}

	var price int64
	switch tier {
	case TierCTV, TierStudent:
		price = resellPrice
	case TierRetail:
		price = customerPrice
	case TierPromo:
		price = roundThousand(customerRaw.Mul(one.Sub(promoFactor)))
	case TierGift:
		price = 0
	case TierImportPassthrough:
		price = baseCost
	default:
		price = customerPrice
	}

	return PriceQuote{
		Cost:          baseCost,
		Price:         price,
		PromoPrice:    promoPrice,
		PricePromo:    promoPrice,
		Promo:         promoAmount,
		ResellPrice:   resellPrice,
		CustomerPrice: customerPrice,
		TotalPrice:    price,
		Tier:          tier,
	}
}

func ratioOr(v decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if !v.Valid || v.Decimal.IsZero() {
		return def
	}
	return v.Decimal
}

func (s *pricingService) loadProfile(ctx context.Context, name string) (*models.PricingProfile, error) {
	if s.cache != nil {
		profile, err := s.cache.GetProfile(ctx, name)
		if err != nil {
			s.log.Warn("pricing cache read failed", zap.String("variant", name), zap.Error(err))
		} else if profile != nil {
			return profile, nil
		}
	}

	variant, err := s.store.Variants().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, nil
	}
	cfg, err := s.store.Variants().GetPriceConfig(ctx, variant.ID)
	if err != nil {
		return nil, err
	}
	profile := &models.PricingProfile{Variant: *variant, Config: cfg}

	if s.cache != nil {
		if err := s.cache.SetProfile(ctx, name, profile, s.opts.CacheTTL); err != nil {
			s.log.Warn("pricing cache write failed", zap.String("variant", name), zap.Error(err))
		}
	}
	return profile, nil
}

func (s *pricingService) evict(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProfile(ctx, name); err != nil {
		s.log.Warn("pricing cache evict failed", zap.String("variant", name), zap.Error(err))
	}
}

func (s *pricingService) UpsertPriceConfig(ctx context.Context, input PriceConfigInput) (*models.PriceConfig, error) {
	name := strings.TrimSpace(input.VariantName)
	if name == "" {
		return nil, ErrMissingProductName
	}
	for _, pct := range []decimal.NullDecimal{input.PctCtv, input.PctKhach, input.PctPromo} {
		if pct.Valid && pct.Decimal.IsNegative() {
			return nil, fmt.Errorf("%w: percentages must not be negative", ErrInvalidPatch)
		}
	}

	variant, err := s.store.Variants().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, name)
	}

	cfg := &models.PriceConfig{
		VariantID: variant.ID,
		PctCtv:    input.PctCtv,
		PctKhach:  input.PctKhach,
		PctPromo:  input.PctPromo,
		UpdatedAt: s.opts.Now(),
	}
	if err := s.store.Variants().UpsertPriceConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save price config: %w", err)
	}
	s.evict(ctx, name)
	return cfg, nil
}

func (s *pricingService) AddSupplierCost(ctx context.Context, input SupplierCostInput) (*models.SupplierCost, error) {
	name := strings.TrimSpace(input.VariantName)
	if name == "" {
		return nil, ErrMissingProductName
	}
	if input.Price <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.SupplierID <= 0 {
		return nil, ErrInvalidID
	}

	var cost *models.SupplierCost
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		supplier, err := tx.Suppliers().GetByID(ctx, input.SupplierID)
		if err != nil {
			return err
		}
		if supplier == nil {
			return fmt.Errorf("%w: %d", ErrSupplierNotFound, input.SupplierID)
		}

		variant, err := tx.Variants().GetByName(ctx, name)
		if err != nil {
			return err
		}
		if variant == nil {
			variant = &models.Variant{Name: name}
			if err := tx.Variants().Create(ctx, variant); err != nil {
				return err
			}
		}

		cost = &models.SupplierCost{VariantID: variant.ID, SourceID: supplier.ID, Price: input.Price}
		return tx.Variants().AddSupplierCost(ctx, cost)
	})
	if err != nil {
		return nil, txFailed(err)
	}
	s.evict(ctx, name)
	return cost, nil
}
