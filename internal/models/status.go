package models

import "strings"

// Status is the lifecycle state of an order. The database stores the legacy
// display label, see Label and ParseStatus.
type Status int

const (
	StatusUnknown Status = iota
	StatusUnpaid
	StatusProcessing
	StatusPaid
	StatusPendingRefund
	StatusRefunded
	StatusExpired
	StatusCanceled
)

var statusTable = []struct {
	status Status
	code   string
	label  string
}{
	{StatusUnpaid, "UNPAID", "Chưa Thanh Toán"},
	{StatusProcessing, "PROCESSING", "Đang Xử Lý"},
	{StatusPaid, "PAID", "Đã Thanh Toán"},
	{StatusPendingRefund, "PENDING_REFUND", "Chưa Hoàn"},
	{StatusRefunded, "REFUNDED", "Đã Hoàn"},
	{StatusExpired, "EXPIRED", "Hết Hạn"},
	{StatusCanceled, "CANCELED", "Hủy"},
}

// ParseStatus accepts either the stored label or the upper-case code.
// Anything else maps to StatusUnknown.
func ParseStatus(s string) Status {
	s = strings.TrimSpace(s)
	for _, row := range statusTable {
		if s == row.label || strings.EqualFold(s, row.code) {
			return row.status
		}
	}
	return StatusUnknown
}

// Label returns the string persisted in the status column.
func (s Status) Label() string {
	for _, row := range statusTable {
		if row.status == s {
			return row.label
		}
	}
	return ""
}

func (s Status) String() string {
	for _, row := range statusTable {
		if row.status == s {
			return row.code
		}
	}
	return "UNKNOWN"
}

// Terminal reports whether the engine allows no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusRefunded, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an update may move an order from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusUnknown {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusUnpaid:
		return next == StatusProcessing || next == StatusPaid || next == StatusCanceled || next == StatusExpired
	case StatusProcessing:
		return next == StatusPaid || next == StatusPendingRefund || next == StatusExpired
	case StatusPaid:
		return next == StatusPendingRefund || next == StatusExpired
	case StatusPendingRefund:
		return next == StatusRefunded || next == StatusExpired
	case StatusUnknown:
		// legacy rows with free-text status may be repaired to any known state
		return true
	}
	return false
}
