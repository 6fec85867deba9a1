package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Variant struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceConfig holds the per-tier multipliers of a variant. A null column means
// the pricing default applies.
type PriceConfig struct {
	VariantID int64               `json:"variant_id" gorm:"primaryKey;autoIncrement:false"`
	PctCtv    decimal.NullDecimal `json:"pct_ctv" gorm:"type:numeric(12,4)"`
	PctKhach  decimal.NullDecimal `json:"pct_khach" gorm:"type:numeric(12,4)"`
	PctPromo  decimal.NullDecimal `json:"pct_promo" gorm:"type:numeric(12,4)"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (PriceConfig) TableName() string { return "variant_price_configs" }

// PricingProfile is what the pricing engine needs about a variant besides
// supplier quotes. It is the unit cached in redis.
type PricingProfile struct {
	Variant Variant      `json:"variant"`
	Config  *PriceConfig `json:"config,omitempty"`
}
