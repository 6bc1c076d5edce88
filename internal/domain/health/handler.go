package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

type Response struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type Handler struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewHandler returns a handler that pings db. timeout <= 0 relies on the request context alone.
func NewHandler(db *gorm.DB, timeout time.Duration) *Handler {
	return &Handler{db: db, timeout: timeout}
}

// Check godoc
// @Summary Liveness check
// @Description Runs SELECT 1 against the metadata database.
// @Tags Health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *Handler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, Response{
			Status: StatusUnavailable,
			Detail: fmt.Sprintf("DB error: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, Response{Status: StatusOK, Detail: "Database connected"})
}
