// Package memory is an in-process repository.Store. Transactions snapshot the
// whole dataset and restore it when the callback fails, which also gives
// nested calls savepoint semantics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"order_ledger/internal/models"
	"order_ledger/internal/repository"
)

type dataset struct {
	orders    map[int64]models.Order
	archives  map[repository.ArchiveKind]map[int64]map[string]any
	suppliers map[int64]models.Supplier
	cycles    map[int64]models.PaymentCycle
	variants  map[int64]models.Variant
	configs   map[int64]models.PriceConfig
	costs     []models.SupplierCost
	sequences map[string]int64
	serial    map[string]int64
}

func newDataset() *dataset {
	return &dataset{
		orders: map[int64]models.Order{},
		archives: map[repository.ArchiveKind]map[int64]map[string]any{
			repository.ArchiveExpired:  {},
			repository.ArchiveCanceled: {},
		},
		suppliers: map[int64]models.Supplier{},
		cycles:    map[int64]models.PaymentCycle{},
		variants:  map[int64]models.Variant{},
		configs:   map[int64]models.PriceConfig{},
		sequences: map[string]int64{},
		serial:    map[string]int64{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for kind, rows := range d.archives {
		for id, row := range rows {
			c.archives[kind][id] = row
		}
	}
	for k, v := range d.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range d.cycles {
		c.cycles[k] = v
	}
	for k, v := range d.variants {
		c.variants[k] = v
	}
	for k, v := range d.configs {
		c.configs[k] = v
	}
	c.costs = append(c.costs, d.costs...)
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	for k, v := range d.serial {
		c.serial[k] = v
	}
	return c
}

func (d *dataset) nextSerial(table string) int64 {
	d.serial[table]++
	return d.serial[table]
}

type Store struct {
	mu  sync.Mutex
	d   *dataset
	now func() time.Time

	// CycleErr, when set, is returned by every payment cycle write.
	CycleErr error
}

func New() *Store {
	return &Store{d: newDataset(), now: time.Now}
}

func (s *Store) Orders() repository.OrderRepository       { return orderRepo{s} }
func (s *Store) Archives() repository.ArchiveRepository   { return archiveRepo{s} }
func (s *Store) Suppliers() repository.SupplierRepository { return supplierRepo{s} }
func (s *Store) Cycles() repository.CycleRepository       { return cycleRepo{s} }
func (s *Store) Variants() repository.VariantRepository   { return variantRepo{s} }
func (s *Store) IDs() repository.IDAllocator              { return idAllocator{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.orders[order.ID]; ok {
		return fmt.Errorf("%w: orders.id=%d", repository.ErrDuplicate, order.ID)
	}
	now := r.s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.s.d.orders[order.ID] = *order
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id int64) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.d.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) Update(_ context.Context, id int64, changes map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.d.orders[id]
	if !ok {
		return nil
	}
	if err := applyChanges(&o, changes); err != nil {
		return err
	}
	o.UpdatedAt = r.s.now()
	r.s.d.orders[id] = o
	return nil
}

func (r orderRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.d.orders, id)
	return nil
}

func (r orderRepo) List(_ context.Context, f repository.OrderFilter) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Order
	for _, o := range r.s.d.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.SupplyID != nil && (o.SupplyID == nil || *o.SupplyID != *f.SupplyID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.IDOrder), search) &&
			!strings.Contains(strings.ToLower(o.Customer), search) &&
			!strings.Contains(strings.ToLower(o.Contact), search) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return window(out, f.Limit, f.Offset), total, nil
}

func window[T any](rows []T, limit, offset int) []T {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 || offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func applyChanges(o *models.Order, changes map[string]any) error {
	for col, v := range changes {
		var ok bool
		switch col {
		case "id_order":
			o.IDOrder, ok = v.(string)
		case "id_product":
			o.IDProduct, ok = v.(string)
		case "customer":
			o.Customer, ok = v.(string)
		case "contact":
			o.Contact, ok = v.(string)
		case "slot":
			o.Slot, ok = v.(string)
		case "note":
			o.Note, ok = v.(string)
		case "status":
			o.Status, ok = v.(string)
		case "order_date":
			o.OrderDate, ok = v.(time.Time)
		case "days":
			o.Days, ok = v.(int)
		case "order_expired":
			o.OrderExpired, ok = v.(*time.Time)
		case "supply_id":
			o.SupplyID, ok = v.(*int64)
		case "cost":
			o.Cost, ok = v.(int64)
		case "price":
			o.Price, ok = v.(int64)
		case "check_flag":
			o.CheckFlag, ok = v.(*bool)
		default:
			return fmt.Errorf("orders has no column %q", col)
		}
		if !ok {
			return fmt.Errorf("orders.%s: unexpected value type %T", col, v)
		}
	}
	return nil
}

type archiveRepo struct{ s *Store }

func (r archiveRepo) Columns(kind repository.ArchiveKind) ([]string, error) {
	model := kind.Model()
	if model == nil {
		return nil, fmt.Errorf("unknown archive %q", kind)
	}
	return models.ColumnNames(model)
}

func (r archiveRepo) Insert(_ context.Context, kind repository.ArchiveKind, row map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, ok := r.s.d.archives[kind]
	if !ok {
		return fmt.Errorf("unknown archive %q", kind)
	}
	id, ok := row["id"].(int64)
	if !ok {
		return fmt.Errorf("%s: id must be int64, got %T", kind.Table(), row["id"])
	}
	if _, exists := rows[id]; exists {
		return fmt.Errorf("%w: %s.id=%d", repository.ErrDuplicate, kind.Table(), id)
	}
	stored := make(map[string]any, len(row))
	for k, v := range row {
		stored[k] = v
	}
	rows[id] = stored
	return nil
}

func (r archiveRepo) Get(_ context.Context, kind repository.ArchiveKind, id int64) (map[string]any, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, ok := r.s.d.archives[kind]
	if !ok {
		return nil, fmt.Errorf("unknown archive %q", kind)
	}
	row, ok := rows[id]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (r archiveRepo) List(_ context.Context, kind repository.ArchiveKind, limit, offset int) ([]map[string]any, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, ok := r.s.d.archives[kind]
	if !ok {
		return nil, 0, fmt.Errorf("unknown archive %q", kind)
	}
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, rows[id])
	}
	return window(out, limit, offset), int64(len(out)), nil
}

type supplierRepo struct{ s *Store }

func (r supplierRepo) Create(_ context.Context, supplier *models.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.d.suppliers {
		if existing.Name == supplier.Name {
			return fmt.Errorf("%w: suppliers.name=%s", repository.ErrDuplicate, supplier.Name)
		}
	}
	if supplier.ID == 0 {
		supplier.ID = r.s.d.nextSerial("suppliers")
	}
	supplier.CreatedAt = r.s.now()
	r.s.d.suppliers[supplier.ID] = *supplier
	return nil
}

func (r supplierRepo) GetByID(_ context.Context, id int64) (*models.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.d.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r supplierRepo) GetByName(_ context.Context, name string) (*models.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.d.suppliers {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, nil
}

func (r supplierRepo) List(_ context.Context) ([]models.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Supplier, 0, len(r.s.d.suppliers))
	for _, s := range r.s.d.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type cycleRepo struct{ s *Store }

func (r cycleRepo) LockSupplier(context.Context, int64) error { return nil }

func (r cycleRepo) Latest(_ context.Context, supplierID int64) (*models.PaymentCycle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.PaymentCycle
	for _, c := range r.s.d.cycles {
		if c.SourceID != supplierID {
			continue
		}
		if latest == nil || c.ID > latest.ID {
			c := c
			latest = &c
		}
	}
	return latest, nil
}

func (r cycleRepo) Create(_ context.Context, cycle *models.PaymentCycle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CycleErr != nil {
		return r.s.CycleErr
	}
	cycle.ID = r.s.d.nextSerial("supplier_payment_cycles")
	now := r.s.now()
	cycle.CreatedAt, cycle.UpdatedAt = now, now
	r.s.d.cycles[cycle.ID] = *cycle
	return nil
}

func (r cycleRepo) AddImport(_ context.Context, id int64, delta int64) error {
	return r.add(id, func(c *models.PaymentCycle) { c.Import += delta })
}

func (r cycleRepo) AddPaid(_ context.Context, id int64, delta int64) error {
	return r.add(id, func(c *models.PaymentCycle) { c.Paid += delta })
}

func (r cycleRepo) add(id int64, apply func(*models.PaymentCycle)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CycleErr != nil {
		return r.s.CycleErr
	}
	c, ok := r.s.d.cycles[id]
	if !ok {
		return nil
	}
	apply(&c)
	c.UpdatedAt = r.s.now()
	r.s.d.cycles[id] = c
	return nil
}

func (r cycleRepo) ListBySupplier(_ context.Context, supplierID int64) ([]models.PaymentCycle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.PaymentCycle
	for _, c := range r.s.d.cycles {
		if c.SourceID == supplierID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type variantRepo struct{ s *Store }

func (r variantRepo) Create(_ context.Context, variant *models.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.d.variants {
		if existing.Name == variant.Name {
			return fmt.Errorf("%w: variants.name=%s", repository.ErrDuplicate, variant.Name)
		}
	}
	variant.ID = r.s.d.nextSerial("variants")
	variant.CreatedAt = r.s.now()
	r.s.d.variants[variant.ID] = *variant
	return nil
}

func (r variantRepo) GetByName(_ context.Context, name string) (*models.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.d.variants {
		if v.Name == name {
			return &v, nil
		}
	}
	return nil, nil
}

func (r variantRepo) GetPriceConfig(_ context.Context, variantID int64) (*models.PriceConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg, ok := r.s.d.configs[variantID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (r variantRepo) UpsertPriceConfig(_ context.Context, cfg *models.PriceConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg.UpdatedAt = r.s.now()
	r.s.d.configs[cfg.VariantID] = *cfg
	return nil
}

func (r variantRepo) AddSupplierCost(_ context.Context, cost *models.SupplierCost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cost.ID = r.s.d.nextSerial("supplier_costs")
	cost.CreatedAt = r.s.now()
	r.s.d.costs = append(r.s.d.costs, *cost)
	return nil
}

func (r variantRepo) MaxSupplierCost(_ context.Context, variantID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, c := range r.s.d.costs {
		if c.VariantID == variantID && c.Price > max {
			max = c.Price
		}
	}
	return max, nil
}

func (r variantRepo) LatestSupplierCost(_ context.Context, variantID, supplierID int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.SupplierCost
	for i := range r.s.d.costs {
		c := &r.s.d.costs[i]
		if c.VariantID != variantID || c.SourceID != supplierID {
			continue
		}
		if latest == nil || c.ID > latest.ID {
			latest = c
		}
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.Price, true, nil
}

type idAllocator struct{ s *Store }

func (a idAllocator) NextID(_ context.Context, table string) (int64, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	var max int64
	switch table {
	case "orders":
		for id := range a.s.d.orders {
			if id > max {
				max = id
			}
		}
	case "order_expired", "order_canceled":
		kind := repository.ArchiveExpired
		if table == "order_canceled" {
			kind = repository.ArchiveCanceled
		}
		for id := range a.s.d.archives[kind] {
			if id > max {
				max = id
			}
		}
	default:
		return 0, fmt.Errorf("table %q has no id sequence", table)
	}

	next := a.s.d.sequences[table]
	if max > next {
		next = max
	}
	next++
	a.s.d.sequences[table] = next
	return next, nil
}
