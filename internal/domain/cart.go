package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is a product snapshot taken when the line was added.
type CartLine struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price"`
	Quantity      int       `json:"quantity"`
	Image         *string   `json:"image"`
	Stock         int       `json:"stock"`
}

// Cart is the single cart owned by a user.
type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartView is what clients see; totals are always recomputed from the lines.
type CartView struct {
	UserID     uuid.UUID  `json:"user_id"`
	Items      []CartLine `json:"items"`
	Total      float64    `json:"total"`
	TotalItems int        `json:"total_items"`
}

// NewCartLine snapshots product for a new line of quantity units.
func NewCartLine(p *Product, quantity int) CartLine {
	line := CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
		Image:     p.FirstImage(),
		Stock:     p.Stock,
	}
	if p.OriginalPrice != nil {
		orig := *p.OriginalPrice
		line.OriginalPrice = &orig
	}
	return line
}

// Line returns the index of the line for productID, or -1.
func (c *Cart) Line(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID uuid.UUID) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// View computes totals from the current lines.
func (c *Cart) View() CartView {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(LineTotal(item.Price, item.Quantity))
		count += item.Quantity
	}

	items := c.Items
	if items == nil {
		items = []CartLine{}
	}

	return CartView{
		UserID:     c.UserID,
		Items:      items,
		Total:      total.Round(2).InexactFloat64(),
		TotalItems: count,
	}
}

// EmptyCartView is the view of a cart that does not exist yet.
func EmptyCartView(userID uuid.UUID) CartView {
	return CartView{UserID: userID, Items: []CartLine{}}
}
