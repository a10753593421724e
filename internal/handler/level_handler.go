package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roboclub-my/console-api/internal/service"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
	"github.com/roboclub-my/console-api/pkg/response"
)

// LevelHandler exposes level catalogue endpoints.
type LevelHandler struct {
	levels *service.LevelService
}

// NewLevelHandler constructs LevelHandler.
func NewLevelHandler(levels *service.LevelService) *LevelHandler {
	return &LevelHandler{levels: levels}
}

// List godoc
// @Summary List levels
// @Tags Levels
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /level [get]
func (h *LevelHandler) List(c *gin.Context) {
	levels, err := h.levels.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// Create godoc
// @Summary Add a level
// @Tags Levels
// @Accept json
// @Produce json
// @Param payload body service.LevelRequest true "Level payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /level [post]
func (h *LevelHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	level, err := h.levels.Create(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// Delete godoc
// @Summary Remove a level
// @Tags Levels
// @Produce json
// @Param id path string true "Level ID"
// @Success 204
// @Security BearerAuth
// @Router /level/{id} [delete]
func (h *LevelHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.levels.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
