package models

import "time"

type Supplier struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// SupplierCost is one price quote from a supplier for a variant. The latest
// quote for a pair is the row with the highest id.
type SupplierCost struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	VariantID int64     `json:"variant_id" gorm:"index:idx_supplier_cost_pair;not null"`
	SourceID  int64     `json:"source_id" gorm:"index:idx_supplier_cost_pair;not null"`
	Price     int64     `json:"price" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentCycle accumulates what is owed to a supplier (Import) against what
// has been paid. The current cycle of a supplier is its highest id.
type PaymentCycle struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	SourceID  int64     `json:"source_id" gorm:"index;not null"`
	Import    int64     `json:"import" gorm:"column:import;not null;default:0"`
	Paid      int64     `json:"paid" gorm:"not null;default:0"`
	Round     string    `json:"round"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentCycle) TableName() string { return "supplier_payment_cycles" }

// Outstanding is the amount still owed on the cycle.
func (c *PaymentCycle) Outstanding() int64 {
	return c.Import - c.Paid
}
