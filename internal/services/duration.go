package services

import (
	"regexp"
	"strconv"
	"time"

	"order_ledger/internal/models"
)

const daysPerMonth = 30

var monthsSuffix = regexp.MustCompile(`(?i)--\s*(\d+)\s*m\b`)

// DurationDays reads the "--Nm" months suffix of a variant name, e.g.
// "Netflix Premium --3m" is 90 days. Names without it get fallback.
func DurationDays(variantName string, fallback int) int {
	m := monthsSuffix.FindStringSubmatch(variantName)
	if m == nil {
		return fallback
	}
	months, err := strconv.Atoi(m[1])
	if err != nil || months <= 0 {
		return fallback
	}
	return months * daysPerMonth
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

// RemainingDays is expiry - today in whole days, nil when the order has no expiry.
func RemainingDays(expiry *time.Time, today time.Time) *int {
	if expiry == nil || expiry.IsZero() {
		return nil
	}
	d := daysBetween(today, *expiry)
	return &d
}

// OrderView is an order row plus the derived fields the lifecycle rules read.
type OrderView struct {
	models.Order
	State         models.Status `json:"-"`
	StatusCode    string        `json:"status_code"`
	RemainingDays *int          `json:"remaining_days"`
	TotalDays     int           `json:"total_days"`
}

// Normalize derives the lifecycle view of o as of now.
func Normalize(o models.Order, now time.Time) OrderView {
	state := models.ParseStatus(o.Status)
	total := o.Days
	if total <= 0 && o.OrderExpired != nil && !o.OrderDate.IsZero() {
		total = daysBetween(o.OrderDate, *o.OrderExpired)
	}
	return OrderView{
		Order:         o,
		State:         state,
		StatusCode:    state.String(),
		RemainingDays: RemainingDays(o.OrderExpired, now),
		TotalDays:     total,
	}
}
