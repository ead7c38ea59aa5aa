package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/backend-go/internal/database/models"
	"github.com/taskdeck/backend-go/internal/database/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	maxSlugLen   = 50
)

// ListParams carries the caller-supplied list options. Page and Limit
// outside their valid ranges are clamped here, not in the repository.
type ListParams struct {
	Page      int
	Limit     int
	Completed *bool
	DueFrom   *time.Time
	DueTo     *time.Time
	Search    string
	SortField string
	SortOrder string
}

// TodoPage is one window of a filtered listing.
type TodoPage struct {
	Items      []models.Todo `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// CreateTodoInput is the payload for creating a todo. DueDate arrives as
// a string and is parsed here so an unparsable date surfaces as a
// business-rule error rather than a binding failure.
type CreateTodoInput struct {
	Title       string
	Description *string
	DueDate     string
	Completed   *bool
}

// UpdateTodoInput carries a partial update; nil fields are left alone.
type UpdateTodoInput struct {
	Title       *string
	Description *string
	DueDate     *string
	Completed   *bool
}

// HasFields reports whether at least one mutable field is present.
func (in UpdateTodoInput) HasFields() bool {
	return in.Title != nil || in.Description != nil || in.DueDate != nil || in.Completed != nil
}

// TodoService defines the interface for todo business logic
type TodoService interface {
	List(userID string, params ListParams) (*TodoPage, error)
	Create(userID string, input CreateTodoInput) (*models.Todo, error)
	GetBySlugOrID(userID, ref string) (*models.Todo, error)
	Update(userID, ref string, input UpdateTodoInput) (*models.Todo, error)
	ToggleCompletion(userID, ref string, completed bool) (*models.Todo, error)
	SoftDelete(userID, ref string) error
	Restore(userID, ref string) (*models.Todo, error)
	ListDeleted(userID string, page, limit int) (*TodoPage, error)
}

type todoService struct {
	todoRepo repository.TodoRepository
	logger   *slog.Logger
}

// NewTodoService creates a new todo service instance
func NewTodoService(todoRepo repository.TodoRepository, logger *slog.Logger) TodoService {
	return &todoService{
		todoRepo: todoRepo,
		logger:   logger,
	}
}

// sortColumns maps the API sort selectors to their storage columns. An
// unknown selector maps to the empty string, which the repository treats
// as the default ordering.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"dueDate":   "due_date",
	"title":     "title",
	"completed": "completed",
}

func (s *todoService) List(userID string, params ListParams) (*TodoPage, error) {
	page, limit := clampPagination(params.Page, params.Limit)

	filter := repository.TodoFilter{
		Completed: params.Completed,
		DueFrom:   params.DueFrom,
		DueTo:     params.DueTo,
		Search:    params.Search,
	}
	sort := repository.TodoSort{
		Column:    sortColumns[params.SortField],
		Ascending: strings.EqualFold(params.SortOrder, "asc"),
	}

	items, total, err := s.todoRepo.List(userID, filter, sort, page*limit, limit)
	if err != nil {
		s.logger.Error("❌ [TodoService] Failed to list todos", "error", err, "user_id", userID)
		return nil, err
	}

	return newTodoPage(items, total, page, limit), nil
}

func (s *todoService) Create(userID string, input CreateTodoInput) (*models.Todo, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(userID, title)
	if err != nil {
		return nil, err
	}

	todo := &models.Todo{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: input.Description,
		DueDate:     dueDate,
		Slug:        slug,
	}
	if input.Completed != nil {
		todo.Completed = *input.Completed
	}

	if err := s.todoRepo.Create(todo); err != nil {
		s.logger.Error("❌ [TodoService] Failed to create todo", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("✅ [TodoService] Todo created", "todo_id", todo.ID, "slug", todo.Slug, "user_id", userID)
	return todo, nil
}

// GetBySlugOrID resolves a path reference first as a slug, then as a raw
// id, before concluding the todo does not exist.
func (s *todoService) GetBySlugOrID(userID, ref string) (*models.Todo, error) {
	todo, err := s.todoRepo.FindBySlug(userID, ref)
	if err == nil {
		return todo, nil
	}
	if !errors.Is(err, repository.ErrTodoNotFound) {
		return nil, err
	}

	id, parseErr := uuid.Parse(ref)
	if parseErr != nil {
		return nil, repository.ErrTodoNotFound
	}
	return s.todoRepo.FindByID(userID, id)
}

func (s *todoService) Update(userID, ref string, input UpdateTodoInput) (*models.Todo, error) {
	if !input.HasFields() {
		return nil, ErrNoUpdateFields
	}

	todo, err := s.GetBySlugOrID(userID, ref)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		todo.Title = title
	}
	if input.Description != nil {
		todo.Description = input.Description
	}
	if input.DueDate != nil {
		dueDate, err := parseDueDate(*input.DueDate)
		if err != nil {
			return nil, err
		}
		todo.DueDate = dueDate
	}
	if input.Completed != nil {
		todo.Completed = *input.Completed
	}
	todo.UpdatedAt = time.Now().UTC()

	if err := s.todoRepo.Update(todo); err != nil {
		s.logger.Error("❌ [TodoService] Failed to update todo", "error", err, "todo_id", todo.ID)
		return nil, err
	}

	return todo, nil
}

func (s *todoService) ToggleCompletion(userID, ref string, completed bool) (*models.Todo, error) {
	return s.Update(userID, ref, UpdateTodoInput{Completed: &completed})
}

func (s *todoService) SoftDelete(userID, ref string) error {
	todo, err := s.GetBySlugOrID(userID, ref)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	todo.DeletedAt = &now
	todo.UpdatedAt = now

	if err := s.todoRepo.Update(todo); err != nil {
		s.logger.Error("❌ [TodoService] Failed to delete todo", "error", err, "todo_id", todo.ID)
		return err
	}

	s.logger.Info("🗑️ [TodoService] Todo moved to trash", "todo_id", todo.ID, "user_id", userID)
	return nil
}

// Restore clears the deletion marker. It only sees rows in the trash, so
// restoring an active todo reports not found.
func (s *todoService) Restore(userID, ref string) (*models.Todo, error) {
	todo, err := s.todoRepo.FindDeletedBySlug(userID, ref)
	if errors.Is(err, repository.ErrTodoNotFound) {
		id, parseErr := uuid.Parse(ref)
		if parseErr != nil {
			return nil, repository.ErrTodoNotFound
		}
		todo, err = s.todoRepo.FindDeletedByID(userID, id)
	}
	if err != nil {
		return nil, err
	}

	todo.DeletedAt = nil
	todo.UpdatedAt = time.Now().UTC()

	if err := s.todoRepo.Update(todo); err != nil {
		s.logger.Error("❌ [TodoService] Failed to restore todo", "error", err, "todo_id", todo.ID)
		return nil, err
	}

	s.logger.Info("♻️ [TodoService] Todo restored", "todo_id", todo.ID, "user_id", userID)
	return todo, nil
}

func (s *todoService) ListDeleted(userID string, page, limit int) (*TodoPage, error) {
	page, limit = clampPagination(page, limit)

	items, total, err := s.todoRepo.ListDeleted(userID, page*limit, limit)
	if err != nil {
		s.logger.Error("❌ [TodoService] Failed to list deleted todos", "error", err, "user_id", userID)
		return nil, err
	}

	return newTodoPage(items, total, page, limit), nil
}

// uniqueSlug derives a URL-safe slug from the title and de-duplicates it
// against the user's existing slugs (deleted rows included, since the
// unique index covers them) by appending -1, -2, ...
func (s *todoService) uniqueSlug(userID, title string) (string, error) {
	existing, err := s.todoRepo.SlugsForUser(userID)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(existing))
	for _, slug := range existing {
		taken[slug] = struct{}{}
	}

	base := slugify(title)
	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

// slugify lowercases the title, collapses runs of non-alphanumerics into
// single hyphens, trims, and truncates.
func slugify(title string) string {
	slug := make([]rune, 0, len(title))
	lastDash := false
	for _, ch := range strings.ToLower(strings.TrimSpace(title)) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			slug = append(slug, ch)
			lastDash = false
			continue
		}
		if !lastDash {
			slug = append(slug, '-')
			lastDash = true
		}
	}

	text := strings.Trim(string(slug), "-")
	if len(text) > maxSlugLen {
		text = strings.TrimRight(text[:maxSlugLen], "-")
	}
	if text == "" {
		text = "todo"
	}
	return text
}

func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrDueDateRequired
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDueDate
}

func clampPagination(page, limit int) (int, int) {
	if page < 0 {
		page = 0
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

func newTodoPage(items []models.Todo, total int64, page, limit int) *TodoPage {
	if items == nil {
		items = []models.Todo{}
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &TodoPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Service errors
var (
	ErrTitleRequired   = errors.New("title is required and cannot be blank")
	ErrDueDateRequired = errors.New("due date is required")
	ErrInvalidDueDate  = errors.New("due date must be a valid date")
	ErrNoUpdateFields  = errors.New("at least one field must be provided")
)
