package services

import "strings"

// Tier is the customer class an order is priced for.
type Tier int

const (
	TierUnknown Tier = iota
	TierCTV
	TierRetail
	TierPromo
	TierGift
	TierImportPassthrough
	TierStudent
)

// tierCodes is checked in order; the first match wins.
var tierCodes = []struct {
	tier   Tier
	code   string
	prefix string
}{
	{TierCTV, "ctv", "MAVC"},
	{TierRetail, "le", "MAVL"},
	{TierPromo, "khuyen", "MAVK"},
	{TierGift, "tang", "MAVT"},
	{TierImportPassthrough, "nhap", "MAVN"},
	{TierStudent, "sinhvien", "MAVS"},
}

// ClassifyTier picks the tier from the order code prefix or the explicit
// customer type hint; either signal is enough.
func ClassifyTier(orderCode, hint string) Tier {
	code := strings.ToUpper(strings.TrimSpace(orderCode))
	hint = strings.ToLower(strings.TrimSpace(hint))
	for _, t := range tierCodes {
		if code != "" && strings.HasPrefix(code, t.prefix) {
			return t.tier
		}
		if hint != "" && (hint == t.code || hint == strings.ToLower(t.prefix)) {
			return t.tier
		}
	}
	return TierUnknown
}

func (t Tier) String() string {
	for _, c := range tierCodes {
		if c.tier == t {
			return c.code
		}
	}
	return "unknown"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
