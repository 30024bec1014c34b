package cart

// Line is one cart entry. Price is in the smallest currency unit and is the
// price captured when the item was added, not a live reference.
type Line struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Qty    int    `json:"qty"`
	ShopID string `json:"shopId,omitempty"`
}

// Cart is the pre-order basket. Lines keep insertion order; merging by item
// id never produces duplicate lines.
type Cart struct {
	Lines []Line `json:"lines"`
}

func New() *Cart {
	return &Cart{}
}

// AddLine merges qty into an existing line with the same item id, or appends
// a new line. qty values below 1 are treated as 1.
func (c *Cart) AddLine(line Line, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == line.ItemID {
			c.Lines[i].Qty += qty
			return
		}
	}
	line.Qty = qty
	c.Lines = append(c.Lines, line)
}

// UpdateQty sets the quantity of a line; qty <= 0 removes it.
func (c *Cart) UpdateQty(itemID string, qty int) {
	if qty <= 0 {
		c.RemoveLine(itemID)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines[i].Qty = qty
			return
		}
	}
}

// RemoveLine deletes the line with the given item id, if present.
func (c *Cart) RemoveLine(itemID string) {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Lines = nil
}

// Total is the sum of price × qty over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Price * int64(l.Qty)
	}
	return total
}

// Count is the sum of quantities over all lines.
func (c *Cart) Count() int {
	var count int
	for _, l := range c.Lines {
		count += l.Qty
	}
	return count
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// ShopID returns the shop owning the basket, taken from the first line that
// carries one.
func (c *Cart) ShopID() string {
	for _, l := range c.Lines {
		if l.ShopID != "" {
			return l.ShopID
		}
	}
	return ""
}
