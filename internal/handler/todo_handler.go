package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/middleware"
)

// TodoHandler handles HTTP requests for the todo resource
type TodoHandler struct {
	todos  service.TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todos service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		todos:  todos,
		logger: logger,
	}
}

// Request DTOs
type ListTodosQuery struct {
	Page        int    `form:"page" binding:"omitempty,min=0"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Completed   *bool  `form:"completed"`
	DueDateFrom string `form:"dueDateFrom"`
	DueDateTo   string `form:"dueDateTo"`
	Search      string `form:"search"`
	SortField   string `form:"sortField" binding:"omitempty,oneof=createdAt dueDate title completed"`
	SortOrder   string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

type CreateTodoRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	DueDate     string  `json:"dueDate" binding:"required"`
	Completed   *bool   `json:"completed"`
}

type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

type PaginationQuery struct {
	Page  int `form:"page" binding:"omitempty,min=0"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// List handles GET /api/todos
func (h *TodoHandler) List(c *gin.Context) {
	var query ListTodosQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingErrorMessage(err)})
		return
	}

	dueFrom, ok := parseDateParam(c, "dueDateFrom", query.DueDateFrom)
	if !ok {
		return
	}
	dueTo, ok := parseDateParam(c, "dueDateTo", query.DueDateTo)
	if !ok {
		return
	}

	params := service.ListParams{
		Page:      query.Page,
		Limit:     query.Limit,
		Completed: query.Completed,
		DueFrom:   dueFrom,
		DueTo:     dueTo,
		Search:    query.Search,
		SortField: query.SortField,
		SortOrder: query.SortOrder,
	}

	page, err := h.todos.List(c.GetString(middleware.ContextUserID), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": page})
}

// Create handles POST /api/todos
func (h *TodoHandler) Create(c *gin.Context) {
	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingErrorMessage(err)})
		return
	}

	todo, err := h.todos.Create(c.GetString(middleware.ContextUserID), service.CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": todo})
}

// Get handles GET /api/todos/:slugOrId
func (h *TodoHandler) Get(c *gin.Context) {
	todo, err := h.todos.GetBySlugOrID(c.GetString(middleware.ContextUserID), c.Param("slugOrId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": todo})
}

// Update handles PATCH /api/todos/:slugOrId
func (h *TodoHandler) Update(c *gin.Context) {
	var req UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingErrorMessage(err)})
		return
	}

	todo, err := h.todos.Update(c.GetString(middleware.ContextUserID), c.Param("slugOrId"), service.UpdateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": todo})
}

// Delete handles DELETE /api/todos/:slugOrId (soft delete)
func (h *TodoHandler) Delete(c *gin.Context) {
	err := h.todos.SoftDelete(c.GetString(middleware.ContextUserID), c.Param("slugOrId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Todo deleted successfully"})
}

// Restore handles POST /api/todos/:slugOrId/restore
func (h *TodoHandler) Restore(c *gin.Context) {
	todo, err := h.todos.Restore(c.GetString(middleware.ContextUserID), c.Param("slugOrId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": todo})
}

// ListDeleted handles GET /api/todos/deleted
func (h *TodoHandler) ListDeleted(c *gin.Context) {
	var query PaginationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingErrorMessage(err)})
		return
	}

	page, err := h.todos.ListDeleted(c.GetString(middleware.ContextUserID), query.Page, query.Limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": page})
}

// parseDateParam parses an optional date query parameter, writing the
// 400 response itself when the value does not parse.
func parseDateParam(c *gin.Context, name, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + name})
	return nil, false
}

// handleServiceError maps service errors to HTTP responses
func (h *TodoHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Todo not found"})
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrDueDateRequired),
		errors.Is(err, service.ErrInvalidDueDate),
		errors.Is(err, service.ErrNoUpdateFields),
		errors.Is(err, repository.ErrSlugTaken):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
