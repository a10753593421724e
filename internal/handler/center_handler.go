package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/middleware"
	"github.com/roboclub-my/console-api/internal/service"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
	"github.com/roboclub-my/console-api/pkg/response"
)

// CenterHandler exposes centre endpoints.
type CenterHandler struct {
	centers *service.CenterService
}

// NewCenterHandler constructs CenterHandler.
func NewCenterHandler(centers *service.CenterService) *CenterHandler {
	return &CenterHandler{centers: centers}
}

// List godoc
// @Summary List centres
// @Tags Centres
// @Produce json
// @Param search query string false "Search by name"
// @Param status query []string false "Filter by status"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/centers [get]
func (h *CenterHandler) List(c *gin.Context) {
	q := listQuery(c)
	// The centre table filters on name, not the generic search column.
	if p, ok := q.Filters["search"]; ok {
		delete(q.Filters, "search")
		q.Filters["name"] = p
	}

	centers, pagination, err := h.centers.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, centers, pagination)
}

// Get godoc
// @Summary Get centre detail
// @Tags Centres
// @Produce json
// @Param id path string true "Centre ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /center/{id} [get]
func (h *CenterHandler) Get(c *gin.Context) {
	center, err := h.centers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, center, nil)
}

// Create godoc
// @Summary Register a centre
// @Tags Centres
// @Accept json
// @Produce json
// @Param payload body service.CreateCenterRequest true "Centre payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /user/center [post]
func (h *CenterHandler) Create(c *gin.Context) {
	var req service.CreateCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	center, err := h.centers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, center)
}

// Approve godoc
// @Summary Approve a centre registration
// @Tags Centres
// @Produce json
// @Param id path string true "Centre ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /center/{id}/approve [post]
func (h *CenterHandler) Approve(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.centers.Approve(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "centre approved")
}

// Update godoc
// @Summary Edit an approved centre record
// @Description Requires the X-Edit-Mode header; approved records are otherwise read-only.
// @Tags Centres
// @Accept json
// @Produce json
// @Param id path string true "Centre ID"
// @Param X-Edit-Mode header bool true "Edit mode flag"
// @Param payload body object true "Changed fields"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /center/{id} [put]
func (h *CenterHandler) Update(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var fields lifecycle.FieldMap
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.centers.Update(c.Request.Context(), actor, c.Param("id"), fields, middleware.EditMode(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "centre updated")
}
