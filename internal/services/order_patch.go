package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"order_ledger/internal/models"
)

var dateLayouts = []string{models.DateLayout, "2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// orderPatch is a validated column patch. supply carries the supplier name
// that still has to be resolved to supply_id inside the transaction.
type orderPatch struct {
	changes map[string]any
	supply  *string
}

func (p orderPatch) has(col string) bool {
	_, ok := p.changes[col]
	return ok
}

// coercePatch validates a decoded JSON patch against the updatable columns
// and converts every value to the Go type of its column.
func coercePatch(raw map[string]any) (orderPatch, error) {
	p := orderPatch{changes: map[string]any{}}
	for col, v := range raw {
		var err error
		switch col {
		case "id_order", "id_product", "customer", "contact", "slot", "note":
			var s string
			s, err = asString(v)
			p.changes[col] = s
		case "status":
			var s string
			if s, err = asString(v); err == nil {
				st := models.ParseStatus(s)
				if st == models.StatusUnknown {
					return p, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
				}
				p.changes[col] = st.Label()
			}
		case "order_date":
			var s string
			if s, err = asString(v); err == nil {
				var t time.Time
				if t, err = parseDate(s); err == nil {
					p.changes[col] = t
				}
			}
		case "order_expired":
			if v == nil {
				p.changes[col] = (*time.Time)(nil)
				continue
			}
			var s string
			if s, err = asString(v); err == nil {
				var t time.Time
				if t, err = parseDate(s); err == nil {
					p.changes[col] = &t
				}
			}
		case "days":
			var n int64
			if n, err = asInt(v); err == nil {
				if n < 0 {
					err = fmt.Errorf("must not be negative")
				}
				p.changes[col] = int(n)
			}
		case "cost", "price":
			var n int64
			if n, err = asInt(v); err == nil {
				if n < 0 {
					err = fmt.Errorf("must not be negative")
				}
				p.changes[col] = n
			}
		case "supply_id":
			if v == nil {
				p.changes[col] = (*int64)(nil)
				continue
			}
			var n int64
			if n, err = asInt(v); err == nil {
				p.changes[col] = &n
			}
		case "supply":
			var s string
			if s, err = asString(v); err == nil {
				s = strings.TrimSpace(s)
				p.supply = &s
			}
		case "check_flag":
			if v == nil {
				p.changes[col] = (*bool)(nil)
				continue
			}
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("expected boolean or null")
			}
			p.changes[col] = &b
		default:
			return p, fmt.Errorf("%w: column %q cannot be updated", ErrInvalidPatch, col)
		}
		if err != nil {
			return p, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, col, err)
		}
	}
	return p, nil
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asInt(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		if t >= math.MaxInt64 || t < math.MinInt64 {
			return 0, fmt.Errorf("number %v out of range", t)
		}
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("expected whole number, got %v", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
