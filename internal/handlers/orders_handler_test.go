package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/shop-orderflow/internal/events"
	"github.com/imrishuroy/shop-orderflow/internal/idempotency"
	"github.com/imrishuroy/shop-orderflow/internal/logging"
	"github.com/imrishuroy/shop-orderflow/internal/orders"
	"github.com/imrishuroy/shop-orderflow/internal/telegram"
)

type fakeRepo struct {
	mu      sync.Mutex
	nextID  int64
	inserts []orders.NewOrder
	err     error
}

func (f *fakeRepo) Insert(ctx context.Context, in orders.NewOrder) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, in)
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	return &orders.Order{
		ID:           f.nextID,
		CustomerName: in.CustomerName,
		Items:        in.Items,
		Total:        in.Total,
		Status:       orders.StatusNew,
		CreatedAt:    time.Now(),
	}, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]orders.Order, error) { return nil, nil }
func (f *fakeRepo) UpdateStatus(ctx context.Context, id int64, s orders.Status) (*orders.Order, error) {
	return nil, errors.New("not used")
}
func (f *fakeRepo) Delete(ctx context.Context, id int64) error { return errors.New("not used") }

type fakeNotifier struct {
	configured bool
	err        error
	texts      []string
}

func (f *fakeNotifier) Configured() bool { return f.configured }
func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakePublisher struct {
	events []events.NewOrder
	err    error
}

func (f *fakePublisher) PublishNewOrder(ctx context.Context, ev events.NewOrder) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakeMetrics struct {
	calls [][2]bool
}

func (f *fakeMetrics) RecordSubmission(ctx context.Context, saved, sent bool) error {
	f.calls = append(f.calls, [2]bool{saved, sent})
	return nil
}

// fakeIdempotency mirrors the DynamoDB store semantics in memory.
type fakeIdempotency struct {
	records map[string]*idempotency.Record
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{records: map[string]*idempotency.Record{}}
}

func (f *fakeIdempotency) CreateIfNotExists(ctx context.Context, key string) (bool, error) {
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = &idempotency.Record{IdempotencyKey: key, Status: idempotency.StatusInProgress}
	return true, nil
}

func (f *fakeIdempotency) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeIdempotency) Retry(ctx context.Context, key string) (bool, error) {
	rec, ok := f.records[key]
	if !ok || rec.Status != idempotency.StatusFailed {
		return false, nil
	}
	rec.Status = idempotency.StatusInProgress
	return true, nil
}

func (f *fakeIdempotency) MarkDone(ctx context.Context, key string, orderID int64, body string, status int) error {
	rec := f.records[key]
	rec.Status, rec.OrderID, rec.ResponseBody, rec.ResponseStatus = idempotency.StatusDone, orderID, body, status
	return nil
}

func (f *fakeIdempotency) MarkFailed(ctx context.Context, key, note string) error {
	rec := f.records[key]
	rec.Status, rec.Note = idempotency.StatusFailed, note
	return nil
}

type env struct {
	repo      *fakeRepo
	notifier  *fakeNotifier
	publisher *fakePublisher
	metrics   *fakeMetrics
	router    *gin.Engine
}

func newEnv(t *testing.T, mutate func(*HandlerConfig)) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := &env{
		repo:      &fakeRepo{nextID: 41},
		notifier:  &fakeNotifier{configured: true},
		publisher: &fakePublisher{},
		metrics:   &fakeMetrics{},
	}
	cfg := HandlerConfig{
		Orders:   e.repo,
		Notifier: e.notifier,
		Events:   e.publisher,
		Metrics:  e.metrics,
		Logger:   logging.Discard(),
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 15, 14, 3, 0, 0, time.UTC) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e.router = gin.New()
	e.router.HandleMethodNotAllowed = true
	e.router.NoMethod(MethodNotAllowed)
	RegisterOrdersRoutes(e.router, cfg)
	return e
}

func (e *env) post(t *testing.T, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

const validBody = `{
	"customer": {"name": "Aigerim_K", "phone": "+77010000000", "address": "Abay 10", "comment": "call first"},
	"items": [
		{"name": "Dress", "price": 10000, "selectedSize": "M", "selectedColor": {"name": "Black", "hex": "#000"}},
		{"name": "Scarf", "price": 5000, "selectedSize": "One size", "selectedColor": {"name": "Red", "hex": "#f00"}}
	],
	"total": 15000
}`

type successBody struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	OrderID         *int64 `json:"orderId"`
	SavedToDatabase bool   `json:"savedToDatabase"`
	SentToTelegram  bool   `json:"sentToTelegram"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateOrder_ValidationFailuresTouchNoSink(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"customer":`, "invalid request body"},
		{"missing name", `{"customer":{"phone":"1","address":"a"},"items":[{"name":"x","price":1}],"total":1}`, "missing required field"},
		{"missing phone", `{"customer":{"name":"n","address":"a"},"items":[{"name":"x","price":1}],"total":1}`, "missing required field"},
		{"missing address", `{"customer":{"name":"n","phone":"1"},"items":[{"name":"x","price":1}],"total":1}`, "missing required field"},
		{"missing address and empty cart", `{"customer":{"name":"n","phone":"1"},"items":[],"total":0}`, "missing required field"},
		{"empty cart", `{"customer":{"name":"n","phone":"1","address":"a"},"items":[],"total":1}`, "empty cart"},
		{"no items key", `{"customer":{"name":"n","phone":"1","address":"a"},"total":1}`, "empty cart"},
		{"zero total", `{"customer":{"name":"n","phone":"1","address":"a"},"items":[{"name":"x","price":1}],"total":0}`, "invalid amount"},
		{"negative total", `{"customer":{"name":"n","phone":"1","address":"a"},"items":[{"name":"x","price":1}],"total":-5}`, "invalid amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, nil)
			w := e.post(t, "/api/orders", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"`+tc.want+`"}`, w.Body.String())
			assert.Empty(t, e.repo.inserts)
			assert.Empty(t, e.notifier.texts)
			assert.Empty(t, e.publisher.events)
		})
	}
}

func TestCreateOrder_BothSinksSucceed(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/api/orders", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[successBody](t, w)
	assert.True(t, got.Success)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, int64(42), *got.OrderID)
	assert.True(t, got.SavedToDatabase)
	assert.True(t, got.SentToTelegram)

	require.Len(t, e.repo.inserts, 1)
	in := e.repo.inserts[0]
	assert.Equal(t, 15000.0, in.Total)
	require.Len(t, in.Items, 2)
	assert.Equal(t, "Red", in.Items[1].SelectedColor.Name)

	require.Len(t, e.notifier.texts, 1)
	text := e.notifier.texts[0]
	assert.Contains(t, text, "#42")
	assert.Contains(t, text, `Aigerim\_K`)
	assert.Contains(t, text, "Размер: M | Цвет: Black")
	assert.Contains(t, text, "💰 *Итого:* "+telegram.Money(15000))
	assert.Contains(t, text, "✅ Сохранено в БД")
	assert.Contains(t, text, "15.10.2026, 14:03:00")

	require.Len(t, e.publisher.events, 1)
	assert.Equal(t, int64(42), e.publisher.events[0].Order.ID)
	assert.Equal(t, [][2]bool{{true, true}}, e.metrics.calls)
}

func TestCreateOrder_StoreDownTelegramUp(t *testing.T) {
	e := newEnv(t, nil)
	e.repo.err = errors.New("connection refused")

	w := e.post(t, "/api/orders", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"order accepted","orderId":null,"savedToDatabase":false,"sentToTelegram":true}`, w.Body.String())

	require.Len(t, e.notifier.texts, 1)
	assert.NotContains(t, e.notifier.texts[0], "#")
	assert.Contains(t, e.notifier.texts[0], "⚠️ БД не подключена")
	assert.Empty(t, e.publisher.events, "unsaved orders are not announced to the bot")
	assert.Equal(t, [][2]bool{{false, true}}, e.metrics.calls)
}

func TestCreateOrder_StoreNotConfigured(t *testing.T) {
	e := newEnv(t, func(c *HandlerConfig) { c.Orders = nil })

	w := e.post(t, "/orders", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[successBody](t, w)
	assert.Nil(t, got.OrderID)
	assert.False(t, got.SavedToDatabase)
	assert.True(t, got.SentToTelegram)
}

func TestCreateOrder_TelegramDownStoreUp(t *testing.T) {
	e := newEnv(t, nil)
	e.notifier.err = errors.New("bad gateway")

	w := e.post(t, "/api/orders", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[successBody](t, w)
	require.NotNil(t, got.OrderID)
	assert.True(t, got.SavedToDatabase)
	assert.False(t, got.SentToTelegram)
}

func TestCreateOrder_BothSinksFail(t *testing.T) {
	t.Run("configured but failing", func(t *testing.T) {
		e := newEnv(t, nil)
		e.repo.err = errors.New("timeout")
		e.notifier.err = errors.New("forbidden")

		w := e.post(t, "/api/orders", validBody)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"order was neither saved nor sent to telegram","debug":{"telegramConfigured":true,"databaseConfigured":true}}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "success")
		assert.Equal(t, [][2]bool{{false, false}}, e.metrics.calls)
	})

	t.Run("nothing configured", func(t *testing.T) {
		e := newEnv(t, func(c *HandlerConfig) { c.Orders = nil })
		e.notifier.configured = false

		w := e.post(t, "/api/orders", validBody)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"order was neither saved nor sent to telegram","debug":{"telegramConfigured":false,"databaseConfigured":false}}`, w.Body.String())
		assert.Empty(t, e.notifier.texts, "unconfigured notifier is never called")
	})
}

func TestCreateOrder_EventFailureDoesNotChangeResponse(t *testing.T) {
	e := newEnv(t, nil)
	e.publisher.err = errors.New("queue gone")

	w := e.post(t, "/api/orders", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[successBody](t, w).SavedToDatabase)
}

func TestCreateOrder_MethodNotAllowed(t *testing.T) {
	e := newEnv(t, nil)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/orders", nil)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())
	}
	assert.Empty(t, e.repo.inserts)
}

func TestCreateOrder_IdempotencyKeyReplaysResponse(t *testing.T) {
	idem := newFakeIdempotency()
	e := newEnv(t, func(c *HandlerConfig) { c.Idempotency = idem })

	first := e.post(t, "/api/orders", validBody, "Idempotency-Key", "checkout-1")
	second := e.post(t, "/api/orders", validBody, "Idempotency-Key", "checkout-1")

	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, e.repo.inserts, 1)
	assert.Len(t, e.notifier.texts, 1)
	assert.Equal(t, int64(42), idem.records["checkout-1"].OrderID)

	other := e.post(t, "/api/orders", validBody, "Idempotency-Key", "checkout-2")
	require.Equal(t, http.StatusOK, other.Code)
	assert.Len(t, e.repo.inserts, 2)
}

func TestCreateOrder_IdempotencyKeyInProgress(t *testing.T) {
	idem := newFakeIdempotency()
	idem.records["busy"] = &idempotency.Record{IdempotencyKey: "busy", Status: idempotency.StatusInProgress}
	e := newEnv(t, func(c *HandlerConfig) { c.Idempotency = idem })

	w := e.post(t, "/api/orders", validBody, "Idempotency-Key", "busy")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, e.repo.inserts)
}

func TestCreateOrder_FailedKeyIsReprocessed(t *testing.T) {
	idem := newFakeIdempotency()
	e := newEnv(t, func(c *HandlerConfig) { c.Idempotency = idem })
	e.repo.err = errors.New("down")
	e.notifier.err = errors.New("down")

	w := e.post(t, "/api/orders", validBody, "Idempotency-Key", "k")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, idempotency.StatusFailed, idem.records["k"].Status)

	e.repo.err = nil
	w = e.post(t, "/api/orders", validBody, "Idempotency-Key", "k")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, idempotency.StatusDone, idem.records["k"].Status)
	assert.Len(t, e.repo.inserts, 2)
}

func TestFormatOrderMessage_OmitsEmptyComment(t *testing.T) {
	e := newEnv(t, nil)
	body := strings.Replace(validBody, `, "comment": "call first"`, "", 1)

	w := e.post(t, "/api/orders", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, e.notifier.texts, 1)
	assert.NotContains(t, e.notifier.texts[0], "Комментарий")
}
