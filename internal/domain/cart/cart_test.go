package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_AddLineMergesByItemID(t *testing.T) {
	c := New()

	c.AddLine(Line{ItemID: "a", Name: "Brownie", Price: 50}, 2)
	c.AddLine(Line{ItemID: "a", Name: "Brownie", Price: 50}, 1)

	// Same item twice yields one line with summed quantity, never two lines.
	assert.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Qty)
}

func TestCart_AddLineAppendsNewItems(t *testing.T) {
	c := New()

	c.AddLine(Line{ItemID: "a", Price: 50}, 1)
	c.AddLine(Line{ItemID: "b", Price: 30}, 1)

	assert.Len(t, c.Lines, 2)
	// Insertion order is preserved.
	assert.Equal(t, "a", c.Lines[0].ItemID)
	assert.Equal(t, "b", c.Lines[1].ItemID)
}

func TestCart_AddLineDefaultsQtyToOne(t *testing.T) {
	c := New()

	c.AddLine(Line{ItemID: "a", Price: 50}, 0)

	assert.Equal(t, 1, c.Lines[0].Qty)
	assert.Equal(t, 1, c.Count())
}

func TestCart_Total(t *testing.T) {
	c := New()

	c.AddLine(Line{ItemID: "a", Price: 50}, 2)
	c.AddLine(Line{ItemID: "b", Price: 30}, 1)

	assert.Equal(t, int64(130), c.Total())
	assert.Equal(t, 3, c.Count())
}

func TestCart_UpdateQty(t *testing.T) {
	c := New()
	c.AddLine(Line{ItemID: "a", Price: 50}, 2)

	c.UpdateQty("a", 5)

	assert.Equal(t, 5, c.Lines[0].Qty)
	assert.Equal(t, int64(250), c.Total())
}

func TestCart_UpdateQtyZeroRemovesLine(t *testing.T) {
	c := New()
	c.AddLine(Line{ItemID: "a", Price: 50}, 2)
	c.AddLine(Line{ItemID: "b", Price: 30}, 1)

	c.UpdateQty("a", 0)

	assert.Len(t, c.Lines, 1)
	assert.Equal(t, "b", c.Lines[0].ItemID)

	c.UpdateQty("b", -3)
	assert.True(t, c.Empty())
	assert.Equal(t, 0, c.Count())
}

func TestCart_UpdateQtyUnknownItemIsNoop(t *testing.T) {
	c := New()
	c.AddLine(Line{ItemID: "a", Price: 50}, 1)

	c.UpdateQty("missing", 4)

	assert.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Qty)
}

func TestCart_RemoveLine(t *testing.T) {
	c := New()
	c.AddLine(Line{ItemID: "a", Price: 50}, 1)
	c.AddLine(Line{ItemID: "b", Price: 30}, 1)
	c.AddLine(Line{ItemID: "c", Price: 20}, 1)

	c.RemoveLine("b")

	assert.Len(t, c.Lines, 2)
	assert.Equal(t, "a", c.Lines[0].ItemID)
	assert.Equal(t, "c", c.Lines[1].ItemID)
}

func TestCart_Clear(t *testing.T) {
	c := New()
	c.AddLine(Line{ItemID: "a", Price: 50}, 2)

	c.Clear()

	assert.True(t, c.Empty())
	assert.Equal(t, int64(0), c.Total())
	assert.Equal(t, 0, c.Count())
}

func TestCart_ShopID(t *testing.T) {
	c := New()
	assert.Equal(t, "", c.ShopID())

	c.AddLine(Line{ItemID: "a", Price: 50, ShopID: "shop-1"}, 1)
	c.AddLine(Line{ItemID: "b", Price: 30, ShopID: "shop-1"}, 1)

	assert.Equal(t, "shop-1", c.ShopID())
}
