package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roboclub-my/console-api/internal/middleware"
	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/service"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
	"github.com/roboclub-my/console-api/pkg/response"
)

// AchievementHandler exposes badge catalogue and assignment endpoints.
type AchievementHandler struct {
	achievements *service.AchievementService
}

// NewAchievementHandler constructs AchievementHandler.
func NewAchievementHandler(achievements *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

func currentUser(c *gin.Context) (models.UserInfo, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return models.UserInfo{}, false
	}
	return models.UserInfo{ID: actor.UserID, Role: actor.Role, CenterID: actor.CenterID}, true
}

// List godoc
// @Summary List the badge catalogue
// @Tags Achievements
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /achievement [get]
func (h *AchievementHandler) List(c *gin.Context) {
	achievements, err := h.achievements.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, achievements, nil)
}

// Create godoc
// @Summary Add a badge
// @Tags Achievements
// @Accept json
// @Produce json
// @Param payload body service.AchievementRequest true "Badge payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /achievement [post]
func (h *AchievementHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	achievement, err := h.achievements.Create(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, achievement)
}

// Update godoc
// @Summary Edit a badge
// @Tags Achievements
// @Accept json
// @Produce json
// @Param id path string true "Achievement ID"
// @Param payload body service.AchievementRequest true "Badge payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /achievement/{id} [put]
func (h *AchievementHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	achievement, err := h.achievements.Update(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, achievement, nil)
}

// Delete godoc
// @Summary Remove a badge and its assignments
// @Tags Achievements
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 204
// @Security BearerAuth
// @Router /achievement/{id} [delete]
func (h *AchievementHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.achievements.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assigned godoc
// @Summary List a student's assigned achievement IDs
// @Tags Achievements
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /achievement/assign/{id} [get]
func (h *AchievementHandler) Assigned(c *gin.Context) {
	assigned, err := h.achievements.Assigned(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assigned, nil)
}

// Assign godoc
// @Summary Reconcile a student's achievements against the full desired set
// @Tags Achievements
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AssignRequest true "Complete achievement ID set"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /achievement/assign/{id} [put]
func (h *AchievementHandler) Assign(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.achievements.Assign(c.Request.Context(), user, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "achievements updated")
}
