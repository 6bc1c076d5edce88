package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dronewerx/internal/pkg/response"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List godoc
// @Summary List user profiles
// @Tags Profiles
// @Produce json
// @Success 200 {array} UserProfile
// @Failure 500 {object} map[string]interface{}
// @Router /profiles [get]
func (h *Handler) List(c *gin.Context) {
	profiles, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.CodeDatabase, err)
		return
	}
	response.Success(c, http.StatusOK, profiles)
}
