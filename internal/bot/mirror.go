package bot

import (
	"context"
	"fmt"
	"math"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
)

// Filter restricts a list view to one status, or shows everything.
type Filter string

// FilterAll matches every order.
const FilterAll Filter = "all"

// Valid reports whether f is FilterAll or a known status.
func (f Filter) Valid() bool {
	return f == FilterAll || orders.Status(f).Valid()
}

// Match reports whether o passes the filter.
func (f Filter) Match(o orders.Order) bool {
	return f == FilterAll || o.Status == orders.Status(f)
}

// Stats summarises the mirrored orders.
type Stats struct {
	Count    int
	ByStatus map[orders.Status]int
	Sum      float64
	Mean     float64 // rounded, 0 when there are no orders
}

// Mirror is the bot's local copy of the order store, kept in display order.
// It is owned by a single goroutine and is not safe for concurrent use.
type Mirror struct {
	ids  []int64
	byID map[int64]orders.Order
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{byID: map[int64]orders.Order{}}
}

// Reload replaces the contents with repo.List, keeping the store's order.
// On error the previous contents stay in place.
func (m *Mirror) Reload(ctx context.Context, repo orders.Repository) error {
	list, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("reload orders: %w", err)
	}
	ids := make([]int64, 0, len(list))
	byID := make(map[int64]orders.Order, len(list))
	for _, o := range list {
		if _, dup := byID[o.ID]; !dup {
			ids = append(ids, o.ID)
		}
		byID[o.ID] = o
	}
	m.ids, m.byID = ids, byID
	return nil
}

// Upsert stores o. A new order goes to the front; a known one keeps its
// position.
func (m *Mirror) Upsert(o orders.Order) {
	if _, ok := m.byID[o.ID]; !ok {
		m.ids = append([]int64{o.ID}, m.ids...)
	}
	m.byID[o.ID] = o
}

// Remove drops the order with id and reports whether it was present.
func (m *Mirror) Remove(id int64) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the mirrored order with id.
func (m *Mirror) Get(id int64) (orders.Order, bool) {
	o, ok := m.byID[id]
	return o, ok
}

// Len returns the number of mirrored orders.
func (m *Mirror) Len() int { return len(m.ids) }

// All returns every order in mirror order.
func (m *Mirror) All() []orders.Order {
	return m.Filter(FilterAll)
}

// Filter returns the orders matching f in mirror order.
func (m *Mirror) Filter(f Filter) []orders.Order {
	out := make([]orders.Order, 0, len(m.ids))
	for _, id := range m.ids {
		if o := m.byID[id]; f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// Stats counts orders per status and sums their totals.
func (m *Mirror) Stats() Stats {
	s := Stats{ByStatus: make(map[orders.Status]int, len(orders.Statuses))}
	for _, id := range m.ids {
		o := m.byID[id]
		s.Count++
		s.ByStatus[o.Status]++
		s.Sum += o.Total
	}
	if s.Count > 0 {
		s.Mean = math.Round(s.Sum / float64(s.Count))
	}
	return s
}
