package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderOption_Total(t *testing.T) {
	tests := []struct {
		name     string
		option   OrderOption
		expected int64
	}{
		{
			name:     "recorded total wins",
			option:   OrderOption{UnitPrice: 500, Quantity: 2, TotalPrice: 900},
			expected: 900,
		},
		{
			name:     "derived from unit price and quantity",
			option:   OrderOption{UnitPrice: 500, Quantity: 3},
			expected: 1500,
		},
		{
			name:     "zero quantity counts as one",
			option:   OrderOption{UnitPrice: 500},
			expected: 500,
		},
		{
			name:     "negative recorded total falls back to derivation",
			option:   OrderOption{UnitPrice: 500, Quantity: 2, TotalPrice: -1},
			expected: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.option.Total())
		})
	}
}

func TestDetailItem_Subtotal(t *testing.T) {
	item := DetailItem{
		OrderItem: OrderItem{Quantity: 2, Price: 8000},
		Options: []OrderOption{
			{UnitPrice: 500, Quantity: 1},
			{UnitPrice: 1000, Quantity: 2},
		},
	}

	assert.Equal(t, int64(2500), item.OptionsTotal())
	assert.Equal(t, int64(10500), item.UnitPriceWithOptions())
	assert.Equal(t, int64(21000), item.Subtotal())
}

func TestDetailItem_Subtotal_ZeroQuantity(t *testing.T) {
	item := DetailItem{OrderItem: OrderItem{Quantity: 0, Price: 8000}}
	assert.Equal(t, int64(8000), item.Subtotal())
}

func TestOrderDetail_EffectiveTotal(t *testing.T) {
	detail := OrderDetail{
		Order: Order{TotalPrice: 18500},
		Items: []DetailItem{
			{OrderItem: OrderItem{Quantity: 1, Price: 9000}},
		},
	}

	total, fallback := detail.EffectiveTotal()
	assert.Equal(t, int64(18500), total)
	assert.False(t, fallback)
}

func TestOrderDetail_EffectiveTotal_FallsBackToLineSum(t *testing.T) {
	detail := OrderDetail{
		Order: Order{TotalPrice: 0},
		Items: []DetailItem{
			{OrderItem: OrderItem{Quantity: 2, Price: 9000}},
			{
				OrderItem: OrderItem{Quantity: 1, Price: 4000},
				Options:   []OrderOption{{UnitPrice: 500, Quantity: 1}},
			},
		},
	}

	total, fallback := detail.EffectiveTotal()
	assert.Equal(t, int64(22500), total)
	assert.True(t, fallback)
}

func TestPrintSettings_AllowsOrder(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	t.Run("disabled blocks everything", func(t *testing.T) {
		s := DefaultPrintSettings()
		s.AutoPrintEnabled = false
		assert.False(t, s.AllowsOrder(Order{IsDineIn: true}, at(12, 0)))
	})

	t.Run("dine-in only blocks takeout", func(t *testing.T) {
		s := DefaultPrintSettings()
		s.PrintDineInOnly = true
		assert.True(t, s.AllowsOrder(Order{IsDineIn: true}, at(12, 0)))
		assert.False(t, s.AllowsOrder(Order{IsDineIn: false}, at(12, 0)))
	})

	t.Run("business hours window", func(t *testing.T) {
		s := DefaultPrintSettings()
		s.BusinessHoursStart = 9 * time.Hour
		s.BusinessHoursEnd = 21 * time.Hour
		assert.True(t, s.AllowsOrder(Order{IsDineIn: true}, at(9, 0)))
		assert.True(t, s.AllowsOrder(Order{IsDineIn: true}, at(20, 59)))
		assert.False(t, s.AllowsOrder(Order{IsDineIn: true}, at(8, 59)))
		assert.False(t, s.AllowsOrder(Order{IsDineIn: true}, at(21, 1)))
	})

	t.Run("window crossing midnight", func(t *testing.T) {
		s := DefaultPrintSettings()
		s.BusinessHoursStart = 18 * time.Hour
		s.BusinessHoursEnd = 2 * time.Hour
		assert.True(t, s.AllowsOrder(Order{IsDineIn: true}, at(23, 0)))
		assert.True(t, s.AllowsOrder(Order{IsDineIn: true}, at(1, 30)))
		assert.False(t, s.AllowsOrder(Order{IsDineIn: true}, at(12, 0)))
	})
}
