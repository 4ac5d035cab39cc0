package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
)

func ids(list []orders.Order) []int64 {
	out := make([]int64, 0, len(list))
	for _, o := range list {
		out = append(out, o.ID)
	}
	return out
}

func TestMirror_ReloadUpsertRemove(t *testing.T) {
	repo := newFakeRepo(sampleOrder(3, orders.StatusNew), sampleOrder(2, orders.StatusConfirmed), sampleOrder(1, orders.StatusNew))
	m := NewMirror()
	require.NoError(t, m.Reload(context.Background(), repo))
	assert.Equal(t, []int64{3, 2, 1}, ids(m.All()))

	updated := sampleOrder(2, orders.StatusDelivered)
	m.Upsert(updated)
	assert.Equal(t, []int64{3, 2, 1}, ids(m.All()), "known id keeps its place")
	got, _ := m.Get(2)
	assert.Equal(t, orders.StatusDelivered, got.Status)

	m.Upsert(sampleOrder(4, orders.StatusNew))
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(m.All()))
	assert.Equal(t, []int64{4, 3, 1}, ids(m.Filter(Filter(orders.StatusNew))))

	assert.True(t, m.Remove(3))
	assert.False(t, m.Remove(3))
	assert.Equal(t, []int64{4, 2, 1}, ids(m.All()))
}

func TestMirror_ReloadFailureKeepsContents(t *testing.T) {
	repo := newFakeRepo(sampleOrder(1, orders.StatusNew))
	m := NewMirror()
	require.NoError(t, m.Reload(context.Background(), repo))

	repo.listErr = errors.New("down")
	assert.ErrorContains(t, m.Reload(context.Background(), repo), "down")
	assert.Equal(t, 1, m.Len())
}

func TestMirror_Stats(t *testing.T) {
	m := NewMirror()
	s := m.Stats()
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Mean)

	a := sampleOrder(1, orders.StatusNew)
	a.Total = 100
	b := sampleOrder(2, orders.StatusDelivered)
	b.Total = 201
	m.Upsert(a)
	m.Upsert(b)

	s = m.Stats()
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 301.0, s.Sum)
	assert.Equal(t, 151.0, s.Mean)
	assert.Equal(t, 1, s.ByStatus[orders.StatusNew])
	assert.Equal(t, 1, s.ByStatus[orders.StatusDelivered])
	assert.Zero(t, s.ByStatus[orders.StatusCancelled])
}
