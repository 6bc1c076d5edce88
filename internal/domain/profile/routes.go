package profile

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.GET("/profiles", h.List)
}
