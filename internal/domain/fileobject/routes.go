package fileobject

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the upload endpoint and the file read endpoints.
func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.POST("/upload", h.Upload)

	files := r.Group("/files")
	{
		files.GET("", h.List)
		files.GET("/:id", h.GetByID)
		files.GET("/:id/content", h.Content)
	}
}
