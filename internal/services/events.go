package services

import (
	"context"
	"time"
)

type OrderCreatedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	IDOrder    string    `json:"id_order"`
	IDProduct  string    `json:"id_product"`
	SupplierID *int64    `json:"supplier_id,omitempty"`
	Cost       int64     `json:"cost"`
	Price      int64     `json:"price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderArchivedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	IDOrder    string    `json:"id_order"`
	MovedTo    string    `json:"moved_to"`
	ArchiveID  int64     `json:"archive_id,omitempty"`
	Refund     int64     `json:"refund,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// EventBus publishes order lifecycle events after the mutation committed.
// A nil EventBus disables publishing.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderArchived(ctx context.Context, e OrderArchivedEvent) error
}
