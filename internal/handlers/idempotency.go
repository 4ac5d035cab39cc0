package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/shop-orderflow/internal/idempotency"
)

// claim takes ownership of key for this request. proceed is false when a
// response was already written (replay, conflict or lookup failure); record
// tells whether the outcome should be stored under key afterwards.
func (h *orderHandler) claim(c *gin.Context, key string) (proceed, record bool) {
	ctx := c.Request.Context()
	log := h.cfg.Logger.With("idempotency_key", key)

	created, err := h.cfg.Idempotency.CreateIfNotExists(ctx, key)
	if err != nil {
		log.Warn("create idempotency record", "error", err)
		return true, false
	}
	if created {
		return true, true
	}

	rec, err := h.cfg.Idempotency.Get(ctx, key)
	if err != nil {
		log.Error("get idempotency record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency check failed"})
		return false, false
	}
	if rec == nil {
		// expired between the two calls
		return true, false
	}

	switch rec.Status {
	case idempotency.StatusDone:
		log.Info("replaying stored response", "order_id", rec.OrderID)
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return false, false
	case idempotency.StatusFailed:
		ok, err := h.cfg.Idempotency.Retry(ctx, key)
		if err != nil {
			log.Warn("retry idempotency record", "error", err)
			return true, false
		}
		if ok {
			return true, true
		}
	}
	c.JSON(http.StatusConflict, gin.H{"error": "request already in progress"})
	return false, false
}

// remember stores the response for key. Server errors mark the key FAILED so
// the client may retry it.
func (h *orderHandler) remember(ctx context.Context, key string, res submission, status int, payload []byte) {
	var err error
	if status >= http.StatusInternalServerError {
		err = h.cfg.Idempotency.MarkFailed(ctx, key, "order was neither saved nor sent")
	} else {
		var id int64
		if res.saved() {
			id = res.order.ID
		}
		err = h.cfg.Idempotency.MarkDone(ctx, key, id, string(payload), status)
	}
	if err != nil {
		h.cfg.Logger.Warn("update idempotency record", "idempotency_key", key, "error", err)
	}
}
