package orders

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses
const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusConfirmed, StatusDelivered, StatusCancelled}

var (
	// ErrNotFound is returned when an order id is unknown to the store.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid order status")
)

var statusIcons = map[Status]string{
	StatusNew:       "🆕",
	StatusConfirmed: "✅",
	StatusDelivered: "🚚",
	StatusCancelled: "❌",
}

var statusLabels = map[Status]string{
	StatusNew:       "Новый заказ",
	StatusConfirmed: "Подтвержден",
	StatusDelivered: "Доставлен",
	StatusCancelled: "Отменен",
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusIcons[s]
	return ok
}

// Icon returns the emoji shown next to the status.
func (s Status) Icon() string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return "❔"
}

// Label returns the human readable status name.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CanTransitionTo reports whether an order in status s may move to next.
// Transitions are operator driven and unconstrained: any valid status is
// reachable from any other, including itself.
func (s Status) CanTransitionTo(next Status) bool {
	return next.Valid()
}

// Color is the colour variant picked for a line item.
type Color struct {
	Name string `json:"name" dynamodbav:"name"`
	Hex  string `json:"hex,omitempty" dynamodbav:"hex,omitempty"`
}

// Item is a single line of an order as chosen in the storefront.
type Item struct {
	Name          string  `json:"name" dynamodbav:"name"`
	Price         float64 `json:"price" dynamodbav:"price"`
	SelectedSize  string  `json:"selectedSize" dynamodbav:"selected_size"`
	SelectedColor Color   `json:"selectedColor" dynamodbav:"selected_color"`
}

// Order represents a persisted customer order.
type Order struct {
	ID              int64     `json:"id" dynamodbav:"id"` // PK
	CustomerName    string    `json:"customer_name" dynamodbav:"customer_name"`
	CustomerPhone   string    `json:"customer_phone" dynamodbav:"customer_phone"`
	CustomerAddress string    `json:"customer_address" dynamodbav:"customer_address"`
	CustomerComment string    `json:"customer_comment" dynamodbav:"customer_comment"`
	Items           []Item    `json:"items" dynamodbav:"items"`
	Total           float64   `json:"total" dynamodbav:"total"`
	Status          Status    `json:"status" dynamodbav:"status"` // new | confirmed | delivered | cancelled
	CreatedAt       time.Time `json:"created_at" dynamodbav:"created_at"`
}

// NewOrder carries the customer-supplied fields of an order before the store
// assigns id, status and creation time.
type NewOrder struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	CustomerComment string
	Items           []Item
	Total           float64
}

// Repository is the order store capability shared by the submission handler
// and the admin bot.
type Repository interface {
	// Insert creates an order with status new and the current time.
	Insert(ctx context.Context, o NewOrder) (*Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// UpdateStatus sets the status of an order and returns the updated record.
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
	// Delete hard-deletes an order.
	Delete(ctx context.Context, id int64) error
}
