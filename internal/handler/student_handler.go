package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roboclub-my/console-api/internal/collection"
	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/middleware"
	"github.com/roboclub-my/console-api/internal/service"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
	"github.com/roboclub-my/console-api/pkg/response"
)

// StudentHandler exposes student lifecycle endpoints.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// maxPageSize mirrors the repository's cap so in-memory listings honour the
// same bound as SQL-backed ones.
const maxPageSize = 100

// listQuery parses the table query parameters into a collection query.
func listQuery(c *gin.Context) collection.Query {
	q := collection.Query{Filters: map[string]collection.Predicate{}}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q.Filters["search"] = collection.Contains(search)
	}
	if center := c.Query("center"); center != "" {
		q.Filters["center"] = collection.Exact(center)
	}
	if statuses := c.QueryArray("status"); len(statuses) > 0 {
		q.Filters["status"] = collection.AnyOf(statuses...)
	}
	if sortBy := c.Query("sort"); sortBy != "" {
		direction := collection.Ascending
		if strings.EqualFold(c.Query("order"), "desc") {
			direction = collection.Descending
		}
		q.Sort = []collection.SortKey{{Field: sortBy, Direction: direction}}
	}

	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	q.PageIndex = page - 1
	q.PageSize = 10
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && v > 0 {
		q.PageSize = v
		if q.PageSize > maxPageSize {
			q.PageSize = maxPageSize
		}
	}
	return q
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or email"
// @Param center query string false "Filter by centre"
// @Param status query []string false "Filter by status"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, pagination, err := h.students.List(c.Request.Context(), actor, listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get student detail with permissions
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/student/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.students.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /user/student [post]
func (h *StudentHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Approve godoc
// @Summary Approve a student registration
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body object false "Field corrections applied before approval"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/{id}/approve [post]
func (h *StudentHandler) Approve(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var corrections lifecycle.FieldMap
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&corrections); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid corrections payload"))
			return
		}
	}

	if err := h.students.Approve(c.Request.Context(), actor, c.Param("id"), corrections); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "student approved")
}

// Reject godoc
// @Summary Reject a student registration
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/{id}/reject [post]
func (h *StudentHandler) Reject(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.students.Reject(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "student rejected")
}

// Update godoc
// @Summary Edit an approved student record
// @Description Requires the X-Edit-Mode header; approved records are otherwise read-only.
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param X-Edit-Mode header bool true "Edit mode flag"
// @Param payload body object true "Changed fields"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /user/student/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
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

	if err := h.students.Update(c.Request.Context(), actor, c.Param("id"), fields, middleware.EditMode(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "student updated")
}

// Delete godoc
// @Summary Delete a student registration
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /user/student/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.students.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
