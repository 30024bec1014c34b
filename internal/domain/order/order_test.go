package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from Status
		want Status
	}{
		{StatusPlaced, StatusPreparing},
		{StatusPreparing, StatusReady},
		{StatusReady, StatusOnTheWay},
		{StatusOnTheWay, StatusDelivered},
		{StatusDelivered, ""},
		{Status("bogus"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.from))
		})
	}
}

func TestCanTransition_OnlyForwardBySingleStep(t *testing.T) {
	all := []Status{StatusPlaced, StatusPreparing, StatusReady, StatusOnTheWay, StatusDelivered}

	for i, from := range all {
		for j, to := range all {
			got := CanTransition(from, to)
			want := j == i+1
			assert.Equalf(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestAddressValidate(t *testing.T) {
	valid := Address{Name: "Jane", Line1: "12 Baker St", City: "Kochi", Phone: "9876543210"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		addr Address
	}{
		{"missing name", Address{Line1: "12 Baker St", Phone: "987"}},
		{"missing line1", Address{Name: "Jane", Phone: "987"}},
		{"missing phone", Address{Name: "Jane", Line1: "12 Baker St"}},
		{"blank fields", Address{Name: "  ", Line1: "\t", Phone: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.addr.Validate(), ErrMissingAddress)
		})
	}
}

func TestAddressString(t *testing.T) {
	withLine2 := Address{Name: "Jane", Line1: "12 Baker St", Line2: "Near park", City: "Kochi", Phone: "987"}
	assert.Equal(t, "Jane, 12 Baker St, Near park, Kochi - 987", withLine2.String())

	withoutLine2 := Address{Name: "Jane", Line1: "12 Baker St", City: "Kochi", Phone: "987"}
	assert.Equal(t, "Jane, 12 Baker St, Kochi - 987", withoutLine2.String())
}

func TestForDelivery(t *testing.T) {
	orders := []*Order{
		{ID: "1", Status: StatusReady},
		{ID: "2", Status: StatusOnTheWay, DeliveryID: "agent-d"},
		{ID: "3", Status: StatusOnTheWay, DeliveryID: "agent-e"},
		{ID: "4", Status: StatusPlaced},
		{ID: "5", Status: StatusDelivered, DeliveryID: "agent-d"},
	}

	view := ForDelivery(orders, "agent-d")

	ids := make([]string, len(view))
	for i, o := range view {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}
