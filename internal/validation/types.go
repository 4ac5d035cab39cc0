package validation

import "github.com/imrishuroy/shop-orderflow/internal/orders"

// Customer holds the contact details entered at checkout.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	Comment string `json:"comment,omitempty"`
}

// Color is the colour variant of a cart item.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex,omitempty"`
}

// Item is a cart line as sent by the storefront. Extra product fields in the
// payload are ignored.
type Item struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	SelectedSize  string  `json:"selectedSize"`
	SelectedColor Color   `json:"selectedColor"`
}

// CreateOrderRequest is the payload for POST /api/orders
type CreateOrderRequest struct {
	Customer Customer `json:"customer"`
	Items    []Item   `json:"items" validate:"required,min=1"` // at least one item
	Total    float64  `json:"total" validate:"gt=0"`           // client computed, not re-checked against items
}

// NewOrder converts the request into the store's creation input.
func (r CreateOrderRequest) NewOrder() orders.NewOrder {
	items := make([]orders.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, orders.Item{
			Name:         it.Name,
			Price:        it.Price,
			SelectedSize: it.SelectedSize,
			SelectedColor: orders.Color{
				Name: it.SelectedColor.Name,
				Hex:  it.SelectedColor.Hex,
			},
		})
	}
	return orders.NewOrder{
		CustomerName:    r.Customer.Name,
		CustomerPhone:   r.Customer.Phone,
		CustomerAddress: r.Customer.Address,
		CustomerComment: r.Customer.Comment,
		Items:           items,
		Total:           r.Total,
	}
}
