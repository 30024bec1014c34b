package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{650, "$6.50"},
		{1250, "$12.50"},
		{100000, "$1,000.00"},
		{123456789, "$1,234,567.89"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.amount))
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	body := BuildOrderConfirmationBody("order-123", 1300, []OrderItem{
		{ItemID: "item-1", Name: "Tiramisu", Qty: 2, Price: 650},
	})

	assert.Contains(t, body, "order-123")
	assert.Contains(t, body, "Tiramisu")
	assert.Contains(t, body, "$13.00")

	// Fall back to the item id when the name is missing.
	body = BuildOrderConfirmationBody("order-123", 650, []OrderItem{
		{ItemID: "item-1", Qty: 1, Price: 650},
	})
	assert.Contains(t, body, "item-1")
}
