package models

import (
	"time"
)

// DateLayout is the day/month/year format used for cycle labels and API dates.
const DateLayout = "02/01/2006"

// Order is a live subscription order. IDs come from the identifier allocator,
// never from a database sequence.
type Order struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	IDOrder      string     `json:"id_order" gorm:"column:id_order;index"`
	IDProduct    string     `json:"id_product" gorm:"column:id_product"`
	Customer     string     `json:"customer"`
	Contact      string     `json:"contact"`
	Slot         string     `json:"slot"`
	OrderDate    time.Time  `json:"order_date" gorm:"type:date"`
	Days         int        `json:"days"`
	OrderExpired *time.Time `json:"order_expired" gorm:"column:order_expired;type:date"`
	SupplyID     *int64     `json:"supply_id" gorm:"index"`
	Cost         int64      `json:"cost"`
	Price        int64      `json:"price"`
	Note         string     `json:"note" gorm:"type:text"`
	Status       string     `json:"status" gorm:"not null;index"`
	CheckFlag    *bool      `json:"check_flag"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Row flattens the order into column/value pairs for archive inserts.
func (o *Order) Row() map[string]any {
	return map[string]any{
		"id":            o.ID,
		"id_order":      o.IDOrder,
		"id_product":    o.IDProduct,
		"customer":      o.Customer,
		"contact":       o.Contact,
		"slot":          o.Slot,
		"order_date":    o.OrderDate,
		"days":          o.Days,
		"order_expired": o.OrderExpired,
		"supply_id":     o.SupplyID,
		"cost":          o.Cost,
		"price":         o.Price,
		"note":          o.Note,
		"status":        o.Status,
		"check_flag":    o.CheckFlag,
		"created_at":    o.CreatedAt,
		"updated_at":    o.UpdatedAt,
	}
}

// ExpiredOrder is an order archived after it ran out or was closed outside
// the paid lifecycle.
type ExpiredOrder struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	IDOrder      string     `json:"id_order" gorm:"column:id_order;index"`
	IDProduct    string     `json:"id_product" gorm:"column:id_product"`
	Customer     string     `json:"customer"`
	Contact      string     `json:"contact"`
	Slot         string     `json:"slot"`
	OrderDate    time.Time  `json:"order_date" gorm:"type:date"`
	Days         int        `json:"days"`
	OrderExpired *time.Time `json:"order_expired" gorm:"column:order_expired;type:date"`
	SupplyID     *int64     `json:"supply_id"`
	Cost         int64      `json:"cost"`
	Price        int64      `json:"price"`
	Note         string     `json:"note" gorm:"type:text"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ArchivedAt   time.Time  `json:"archived_at"`
}

func (ExpiredOrder) TableName() string { return "order_expired" }

// CanceledOrder is a paid order canceled before its term ended, waiting on a refund.
type CanceledOrder struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	IDOrder      string     `json:"id_order" gorm:"column:id_order;index"`
	IDProduct    string     `json:"id_product" gorm:"column:id_product"`
	Customer     string     `json:"customer"`
	Contact      string     `json:"contact"`
	Slot         string     `json:"slot"`
	OrderDate    time.Time  `json:"order_date" gorm:"type:date"`
	Days         int        `json:"days"`
	OrderExpired *time.Time `json:"order_expired" gorm:"column:order_expired;type:date"`
	SupplyID     *int64     `json:"supply_id"`
	Cost         int64      `json:"cost"`
	Price        int64      `json:"price"`
	Note         string     `json:"note" gorm:"type:text"`
	Status       string     `json:"status"`
	Refund       int64      `json:"refund"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (CanceledOrder) TableName() string { return "order_canceled" }

// IDSequence backs the identifier allocator: one counter row per table.
type IDSequence struct {
	TableName string `gorm:"column:table_name;primaryKey"`
	LastValue int64  `gorm:"column:last_value;not null"`
}
