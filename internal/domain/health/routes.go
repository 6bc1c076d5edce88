package health

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.GET("/health", h.Check)
}
