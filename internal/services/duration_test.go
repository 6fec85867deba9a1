package services

import (
	"testing"
	"time"

	"order_ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationDays(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Netflix Premium --1m", 30},
		{"Netflix Premium --3m", 90},
		{"Office 365 --12M", 360},
		{"Spotify -- 2 m", 60},
		{"Spotify --0m", 30},
		{"Spotify", 30},
		{"Spotify 3m", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationDays(tt.name, 30))
		})
	}
}

func TestRemainingDays(t *testing.T) {
	today := time.Date(2024, time.June, 15, 23, 59, 0, 0, time.UTC)

	assert.Nil(t, RemainingDays(nil, today))

	future := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, RemainingDays(&future, today))
	assert.Equal(t, 5, *RemainingDays(&future, today))

	past := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, -5, *RemainingDays(&past, today))
}

func TestNormalize(t *testing.T) {
	orderDate := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, time.July, 30, 0, 0, 0, 0, time.UTC)

	view := Normalize(models.Order{
		Status:       models.StatusPaid.Label(),
		OrderDate:    orderDate,
		OrderExpired: &expiry,
	}, testNow)

	assert.Equal(t, models.StatusPaid, view.State)
	assert.Equal(t, "PAID", view.StatusCode)
	assert.Equal(t, 90, view.TotalDays)
	assert.Equal(t, 45, *view.RemainingDays)

	legacy := Normalize(models.Order{Status: "đã giao", Days: 60}, testNow)
	assert.Equal(t, models.StatusUnknown, legacy.State)
	assert.Equal(t, "UNKNOWN", legacy.StatusCode)
	assert.Equal(t, 60, legacy.TotalDays)
	assert.Nil(t, legacy.RemainingDays)
}
