package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateOrderInput struct {
	IDOrder      string `json:"id_order"`
	IDProduct    string `json:"id_product"`
	Customer     string `json:"customer"`
	Contact      string `json:"contact"`
	Slot         string `json:"slot"`
	Note         string `json:"note"`
	OrderDate    string `json:"order_date"`
	Days         *int   `json:"days"`
	Supply       string `json:"supply"`
	SupplyID     *int64 `json:"supply_id"`
	Cost         *int64 `json:"cost"`
	Price        *int64 `json:"price"`
	CustomerType string `json:"customer_type"`
}

type ListOrdersInput struct {
	Status   string
	SupplyID *int64
	Search   string
	Limit    int
	Offset   int
}

// MutationResult is a committed order change plus the ledger warning, if the
// ledger step failed and was rolled back on its own.
type MutationResult struct {
	Order   *OrderView     `json:"order"`
	Warning *LedgerWarning `json:"warning,omitempty"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	GetOrder(ctx context.Context, id int64) (*OrderView, error)
	ListOrders(ctx context.Context, input ListOrdersInput) ([]OrderView, int64, error)
	UpdateOrderWithFinance(ctx context.Context, id int64, patch map[string]any) (*MutationResult, error)
	DeleteOrder(ctx context.Context, id int64, override ArchiveOverride) (*ArchiveResult, error)
}

type orderService struct {
	store       repository.Store
	pricing     PricingService
	ledger      LedgerService
	archive     ArchiveService
	events      EventBus
	log         *zap.Logger
	now         func() time.Time
	defaultDays int
}

func NewOrderService(
	store repository.Store,
	pricing PricingService,
	ledger LedgerService,
	archive ArchiveService,
	events EventBus,
	defaultDays int,
	log *zap.Logger,
) OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultDays <= 0 {
		defaultDays = daysPerMonth
	}
	return &orderService{
		store:       store,
		pricing:     pricing,
		ledger:      ledger,
		archive:     archive,
		events:      events,
		log:         log,
		now:         time.Now,
		defaultDays: defaultDays,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	orderDate := dateOnly(s.now())
	if strings.TrimSpace(input.OrderDate) != "" {
		d, err := parseDate(input.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("%w: order_date: %v", ErrInvalidPatch, err)
		}
		orderDate = d
	}
	for _, v := range []*int64{input.Cost, input.Price} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: cost and price must not be negative", ErrInvalidPatch)
		}
	}

	supplyName := strings.TrimSpace(input.Supply)
	supplierID := input.SupplyID
	if supplierID == nil && supplyName != "" {
		// read only; the supplier row is created inside the transaction
		existing, err := s.store.Suppliers().GetByName(ctx, supplyName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			supplierID = &existing.ID
		}
	}

	cost, price := input.Cost, input.Price
	days := 0
	if cost == nil || price == nil {
		quote, err := s.pricing.ComputePrice(ctx, PriceRequest{
			VariantName:  input.IDProduct,
			OrderCode:    input.IDOrder,
			CustomerType: input.CustomerType,
			SupplierID:   supplierID,
			OrderDate:    orderDate,
		})
		if err != nil {
			return nil, err
		}
		if cost == nil {
			cost = &quote.Cost
		}
		if price == nil {
			price = &quote.Price
		}
		days = quote.Days
	}
	if input.Days != nil && *input.Days > 0 {
		days = *input.Days
	}
	if days <= 0 {
		days = DurationDays(input.IDProduct, s.defaultDays)
	}
	expires := orderDate.AddDate(0, 0, days)

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if supplierID == nil && supplyName != "" {
			supplier, err := findOrCreateSupplier(ctx, tx, supplyName)
			if err != nil {
				return err
			}
			supplierID = &supplier.ID
		} else if supplierID != nil {
			supplier, err := tx.Suppliers().GetByID(ctx, *supplierID)
			if err != nil {
				return err
			}
			if supplier == nil {
				return fmt.Errorf("%w: %d", ErrSupplierNotFound, *supplierID)
			}
		}

		id, err := tx.IDs().NextID(ctx, models.Order{}.TableName())
		if err != nil {
			return err
		}
		order = &models.Order{
			ID:           id,
			IDOrder:      strings.TrimSpace(input.IDOrder),
			IDProduct:    strings.TrimSpace(input.IDProduct),
			Customer:     input.Customer,
			Contact:      input.Contact,
			Slot:         input.Slot,
			OrderDate:    orderDate,
			Days:         days,
			OrderExpired: &expires,
			SupplyID:     supplierID,
			Cost:         *cost,
			Price:        *price,
			Note:         input.Note,
			Status:       models.StatusUnpaid.Label(),
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		s.log.Error("failed to create order",
			zap.String("id_order", input.IDOrder),
			zap.Int64p("supplier_id", supplierID),
			zap.Int64p("cost", cost),
			zap.Error(err),
		)
		return nil, txFailed(err)
	}

	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("id_order", order.IDOrder),
		zap.Int64p("supplier_id", order.SupplyID),
		zap.Int64("cost", order.Cost),
		zap.Int64("price", order.Price),
	)
	s.publishCreated(ctx, order)

	view := Normalize(*order, s.now())
	return &view, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*OrderView, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	view := Normalize(*order, s.now())
	return &view, nil
}

func (s *orderService) ListOrders(ctx context.Context, input ListOrdersInput) ([]OrderView, int64, error) {
	filter := repository.OrderFilter{
		SupplyID: input.SupplyID,
		Search:   input.Search,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}
	if strings.TrimSpace(input.Status) != "" {
		st := models.ParseStatus(input.Status)
		if st == models.StatusUnknown {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
		}
		filter.Status = st.Label()
	}

	orders, total, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, Normalize(o, now))
	}
	return views, total, nil
}

func (s *orderService) UpdateOrderWithFinance(ctx context.Context, id int64, raw map[string]any) (*MutationResult, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	patch, err := coercePatch(raw)
	if err != nil {
		return nil, err
	}
	if len(patch.changes) == 0 && patch.supply == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidPatch)
	}

	current, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}

	if err := s.repriceIfNeeded(ctx, current, &patch); err != nil {
		return nil, err
	}

	result := &MutationResult{}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		before, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}
		if label, ok := patch.changes["status"].(string); ok {
			from, to := models.ParseStatus(before.Status), models.ParseStatus(label)
			if !from.CanTransitionTo(to) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
			}
		}

		if patch.supply != nil {
			if *patch.supply == "" {
				patch.changes["supply_id"] = (*int64)(nil)
			} else {
				supplier, err := findOrCreateSupplier(ctx, tx, *patch.supply)
				if err != nil {
					return err
				}
				patch.changes["supply_id"] = &supplier.ID
			}
		}

		if supplyID, ok := patch.changes["supply_id"].(*int64); ok && supplyID != nil {
			supplier, err := tx.Suppliers().GetByID(ctx, *supplyID)
			if err != nil {
				return err
			}
			if supplier == nil {
				return fmt.Errorf("%w: %d", ErrSupplierNotFound, *supplyID)
			}
		}

		if err := tx.Orders().Update(ctx, id, patch.changes); err != nil {
			return err
		}
		after, err := tx.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}

		var added int64
		if err := tx.WithTx(ctx, func(sp repository.Store) error {
			var err error
			added, err = s.ledger.AddSupplierImportOnCheck(ctx, sp, before, after)
			return err
		}); err != nil {
			result.Warning = ledgerWarning(s.log, after, added, err)
		}

		view := Normalize(*after, s.now())
		result.Order = &view
		return nil
	})
	if err != nil {
		s.log.Error("failed to update order",
			zap.Int64("order_id", id),
			zap.Int64p("supplier_id", current.SupplyID),
			zap.Int64("cost", current.Cost),
			zap.String("status", current.Status),
			zap.Error(err),
		)
		return nil, txFailed(err)
	}
	return result, nil
}

// repriceIfNeeded recomputes cost and price when the product, the supplier
// or the tier implied by the order code changes and the patch does not set
// either figure itself. A product that cannot be priced keeps its current
// figures.
func (s *orderService) repriceIfNeeded(ctx context.Context, current *models.Order, patch *orderPatch) error {
	if patch.has("cost") || patch.has("price") {
		return nil
	}

	product, productChanged := patch.changes["id_product"].(string)
	productChanged = productChanged && product != current.IDProduct
	if !productChanged {
		product = current.IDProduct
	}

	supplierID := current.SupplyID
	supplierChanged := false
	if patch.supply != nil {
		supplierChanged = true
		supplierID = nil
		if *patch.supply != "" {
			existing, err := s.store.Suppliers().GetByName(ctx, *patch.supply)
			if err != nil {
				return err
			}
			if existing != nil {
				supplierID = &existing.ID
			}
		}
	} else if v, ok := patch.changes["supply_id"].(*int64); ok {
		supplierChanged = !sameID(v, current.SupplyID)
		supplierID = v
	}
	code := current.IDOrder
	if v, ok := patch.changes["id_order"].(string); ok {
		code = v
	}
	tierChanged := ClassifyTier(code, "") != ClassifyTier(current.IDOrder, "")
	if !productChanged && !supplierChanged && !tierChanged {
		return nil
	}
	quote, err := s.pricing.ComputePrice(ctx, PriceRequest{
		VariantName:  product,
		OrderCode:    code,
		SupplierID:   supplierID,
		PreviousCost: current.Cost,
		OrderDate:    current.OrderDate,
	})
	switch {
	case errors.Is(err, ErrVariantNotFound), errors.Is(err, ErrNoSupplierPrice), errors.Is(err, ErrMissingProductName):
		s.log.Debug("order kept its price", zap.Int64("order_id", current.ID), zap.String("id_product", product), zap.Error(err))
		return nil
	case err != nil:
		return err
	}
	patch.changes["cost"] = quote.Cost
	patch.changes["price"] = quote.Price
	return nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *orderService) DeleteOrder(ctx context.Context, id int64, override ArchiveOverride) (*ArchiveResult, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	var (
		result *ArchiveResult
		order  *models.Order
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}
		result, err = s.archive.DeleteOrderWithArchive(ctx, tx, Normalize(*order, s.now()), override)
		return err
	})
	if err != nil {
		fields := []zap.Field{zap.Int64("order_id", id), zap.Error(err)}
		if order != nil {
			fields = append(fields,
				zap.Int64p("supplier_id", order.SupplyID),
				zap.Int64("cost", order.Cost),
				zap.String("status", order.Status),
			)
		}
		s.log.Error("failed to delete order", fields...)
		return nil, txFailed(err)
	}

	s.log.Info("order removed",
		zap.Int64("order_id", order.ID),
		zap.String("moved_to", result.MovedTo),
		zap.Int64("archive_id", result.ArchiveID),
	)
	s.publishArchived(ctx, order, result)
	return result, nil
}

// findOrCreateSupplier looks a supplier up by name and inserts it when
// missing. The insert runs in a savepoint so losing a race to a concurrent
// insert does not poison the enclosing transaction.
func findOrCreateSupplier(ctx context.Context, tx repository.Store, name string) (*models.Supplier, error) {
	supplier, err := tx.Suppliers().GetByName(ctx, name)
	if err != nil || supplier != nil {
		return supplier, err
	}
	supplier = &models.Supplier{Name: name}
	err = tx.WithTx(ctx, func(sp repository.Store) error {
		return sp.Suppliers().Create(ctx, supplier)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return tx.Suppliers().GetByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *orderService) publishCreated(ctx context.Context, order *models.Order) {
	if s.events == nil {
		return
	}
	err := s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		IDOrder:    order.IDOrder,
		IDProduct:  order.IDProduct,
		SupplierID: order.SupplyID,
		Cost:       order.Cost,
		Price:      order.Price,
		Status:     order.Status,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.log.Warn("failed to publish order.created", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *orderService) publishArchived(ctx context.Context, order *models.Order, result *ArchiveResult) {
	if s.events == nil {
		return
	}
	e := OrderArchivedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		IDOrder:    order.IDOrder,
		MovedTo:    result.MovedTo,
		ArchiveID:  result.ArchiveID,
		ArchivedAt: s.now(),
	}
	if refund, ok := result.DeletedOrder["refund"].(int64); ok {
		e.Refund = refund
	}
	if err := s.events.PublishOrderArchived(ctx, e); err != nil {
		s.log.Warn("failed to publish order.archived", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}
