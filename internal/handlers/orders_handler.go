// Package handlers exposes the order submission endpoint.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/shop-orderflow/internal/events"
	"github.com/imrishuroy/shop-orderflow/internal/idempotency"
	"github.com/imrishuroy/shop-orderflow/internal/orders"
	"github.com/imrishuroy/shop-orderflow/internal/validation"
)

// ErrDependencyUnavailable marks a sink that is not configured.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// Notifier delivers the order summary to the shop's chat.
type Notifier interface {
	Configured() bool
	Notify(ctx context.Context, text string) error
}

// MetricsRecorder counts submissions and sink failures.
type MetricsRecorder interface {
	RecordSubmission(ctx context.Context, savedToDatabase, sentToTelegram bool) error
}

// IdempotencyStore remembers responses by Idempotency-Key.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	Retry(ctx context.Context, key string) (bool, error)
	MarkDone(ctx context.Context, key string, orderID int64, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the orders handler. Orders and
// Notifier are the two sinks; a nil Orders means no database is configured.
// Events, Metrics and Idempotency are optional.
type HandlerConfig struct {
	Orders      orders.Repository
	Notifier    Notifier
	Events      events.Publisher
	Metrics     MetricsRecorder
	Idempotency IdempotencyStore
	Logger      *slog.Logger
	Location    *time.Location
	Now         func() time.Time
}

type orderHandler struct {
	cfg      HandlerConfig
	validate *validatorv10.Validate
}

// RegisterOrdersRoutes registers POST /api/orders (and /orders) on r. Routing
// other methods to MethodNotAllowed is left to the engine owner.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Events == nil {
		cfg.Events = events.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &orderHandler{cfg: cfg, validate: validation.New()}

	r.POST("/api/orders", h.create)
	r.POST("/orders", h.create)
}

// MethodNotAllowed answers 405 with a JSON error. Install it with
// gin.Engine.NoMethod.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
}

func (h *orderHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	key := c.GetHeader("Idempotency-Key")
	record := false
	if key != "" && h.cfg.Idempotency != nil {
		var proceed bool
		proceed, record = h.claim(c, key)
		if !proceed {
			return
		}
	}

	res := h.submit(ctx, req)
	status, body := combine(res, h.cfg.Notifier != nil && h.cfg.Notifier.Configured(), h.cfg.Orders != nil)
	payload, err := json.Marshal(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if record {
		h.remember(ctx, key, res, status, payload)
	}
	c.Data(status, "application/json; charset=utf-8", payload)
}

// submission is the outcome of both sinks for one request.
type submission struct {
	order      *orders.Order
	persistErr error
	notifyErr  error
}

func (s submission) saved() bool { return s.persistErr == nil && s.order != nil }
func (s submission) sent() bool  { return s.notifyErr == nil }

// submit persists the order, then notifies the chat. Each sink is tried once
// and neither failure stops the other.
func (h *orderHandler) submit(ctx context.Context, req validation.CreateOrderRequest) submission {
	log := h.cfg.Logger
	var res submission

	res.order, res.persistErr = h.persist(ctx, req.NewOrder())
	if res.persistErr != nil {
		log.Error("persist order", "error", res.persistErr)
	} else {
		log.Info("order saved", "order_id", res.order.ID)
	}

	var id int64
	if res.saved() {
		id = res.order.ID
	}
	text := formatOrderMessage(req, id, res.saved(), h.cfg.Now(), h.cfg.Location)
	res.notifyErr = h.notify(ctx, text)
	if res.notifyErr != nil {
		log.Error("notify chat", "error", res.notifyErr)
	} else {
		log.Info("order sent to telegram", "order_id", id)
	}

	if res.saved() {
		ev := events.New(*res.order, h.cfg.Now())
		if err := h.cfg.Events.PublishNewOrder(ctx, ev); err != nil {
			log.Warn("publish new-order event", "order_id", id, "error", err)
		}
	}
	if h.cfg.Metrics != nil {
		if err := h.cfg.Metrics.RecordSubmission(ctx, res.saved(), res.sent()); err != nil {
			log.Warn("record submission metrics", "error", err)
		}
	}
	return res
}

func (h *orderHandler) persist(ctx context.Context, in orders.NewOrder) (*orders.Order, error) {
	if h.cfg.Orders == nil {
		return nil, fmt.Errorf("%w: order store not configured", ErrDependencyUnavailable)
	}
	return h.cfg.Orders.Insert(ctx, in)
}

func (h *orderHandler) notify(ctx context.Context, text string) error {
	if h.cfg.Notifier == nil || !h.cfg.Notifier.Configured() {
		return fmt.Errorf("%w: telegram not configured", ErrDependencyUnavailable)
	}
	return h.cfg.Notifier.Notify(ctx, text)
}

type createOrderResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	OrderID         *int64 `json:"orderId"`
	SavedToDatabase bool   `json:"savedToDatabase"`
	SentToTelegram  bool   `json:"sentToTelegram"`
}

type failureDebug struct {
	TelegramConfigured bool `json:"telegramConfigured"`
	DatabaseConfigured bool `json:"databaseConfigured"`
}

type failureResponse struct {
	Error string       `json:"error"`
	Debug failureDebug `json:"debug"`
}

// combine applies the result policy: success when at least one sink worked,
// server error when both failed.
func combine(res submission, telegramConfigured, databaseConfigured bool) (int, any) {
	if res.saved() || res.sent() {
		out := createOrderResponse{
			Success:         true,
			Message:         "order accepted",
			SavedToDatabase: res.saved(),
			SentToTelegram:  res.sent(),
		}
		if res.saved() {
			id := res.order.ID
			out.OrderID = &id
		}
		return http.StatusOK, out
	}
	return http.StatusInternalServerError, failureResponse{
		Error: "order was neither saved nor sent to telegram",
		Debug: failureDebug{
			TelegramConfigured: telegramConfigured,
			DatabaseConfigured: databaseConfigured,
		},
	}
}
